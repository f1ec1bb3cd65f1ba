package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the workflow side-effect listeners. The audit log
// is a superset of workflow history; other modules append their own types.
const (
	EventTypeAttendanceStatusChange = "ATTENDANCE_STATUS_CHANGE"
	EventTypeLeaveStatusChange      = "LEAVE_STATUS_CHANGE"
)

type AuditLog struct {
	ID        uint
	TenantID  uuid.UUID
	EventType string
	ActorID   uuid.UUID
	Details   string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

type FindParams struct {
	EventType string
	ActorID   uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*AuditLog, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, log *AuditLog) error
}
