package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/pkg/composables"
)

// UserQueryService is the read-only user directory the transition handlers
// resolve owners, actors and approvers against.
type UserQueryService struct {
	repo user.Repository
}

func NewUserQueryService(repo user.Repository) *UserQueryService {
	return &UserQueryService{repo: repo}
}

func (s *UserQueryService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *UserQueryService) GetAll(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]user.User, error) {
		return s.repo.GetAll(txCtx, params)
	})
}

func (s *UserQueryService) Count(ctx context.Context, params *user.FindParams) (int64, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.repo.Count(txCtx, params)
	})
}
