package user

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	OrganizationID uuid.UUID
	Role           string
	Limit          int
	Offset         int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetAll(ctx context.Context, params *FindParams) ([]User, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, u User) (User, error)
}
