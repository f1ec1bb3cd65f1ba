package attendancerecord

import (
	"time"

	"github.com/google/uuid"
)

// CreatedEvent is published after a record is persisted for the first
// time. It is not a status transition and carries no old status.
type CreatedEvent struct {
	TenantID uuid.UUID
	Record   AttendanceRecord
}

// StatusChangedEvent is published exactly once per committed status
// transition, after the transaction has committed.
type StatusChangedEvent struct {
	TenantID  uuid.UUID
	EntityID  uuid.UUID
	OwnerID   uuid.UUID
	ActorID   uuid.UUID
	OldStatus string
	NewStatus string
	Reason    string
	Timestamp time.Time
}

func NewCreatedEvent(record AttendanceRecord) CreatedEvent {
	return CreatedEvent{TenantID: record.TenantID(), Record: record}
}

func NewStatusChangedEvent(record AttendanceRecord, actorID uuid.UUID, oldStatus, reason string, now time.Time) StatusChangedEvent {
	return StatusChangedEvent{
		TenantID:  record.TenantID(),
		EntityID:  record.ID(),
		OwnerID:   record.OwnerID(),
		ActorID:   actorID,
		OldStatus: oldStatus,
		NewStatus: record.Status(),
		Reason:    reason,
		Timestamp: now,
	}
}
