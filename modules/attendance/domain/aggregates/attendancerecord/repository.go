package attendancerecord

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	OwnerID        uuid.UUID
	OrganizationID uuid.UUID
	Status         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type Repository interface {
	// GetByID returns a record that has not been soft deleted.
	GetByID(ctx context.Context, id uuid.UUID) (AttendanceRecord, error)
	// GetByIDIncludingDeleted also returns soft-deleted records; restore
	// needs to see them.
	GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (AttendanceRecord, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]AttendanceRecord, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)
	// Update persists changes guarded by the record's version; a stale
	// version yields ErrVersionConflict from the implementation.
	Update(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)
}
