package leaverequest

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	OwnerID        uuid.UUID
	OrganizationID uuid.UUID
	LeaveType      string
	Status         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (LeaveRequest, error)
	GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (LeaveRequest, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]LeaveRequest, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	// Update is guarded by the request's version; a stale snapshot yields
	// ErrVersionConflict from the implementation.
	Update(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
}
