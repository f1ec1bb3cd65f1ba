package leaverequest

import (
	"time"

	"github.com/google/uuid"
)

// CreatedEvent is published after a request is first persisted. Not a
// status transition.
type CreatedEvent struct {
	TenantID uuid.UUID
	Request  LeaveRequest
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

func NewCreatedEvent(request LeaveRequest) CreatedEvent {
	return CreatedEvent{TenantID: request.TenantID(), Request: request}
}

func NewStatusChangedEvent(request LeaveRequest, actorID uuid.UUID, oldStatus, reason string, now time.Time) StatusChangedEvent {
	return StatusChangedEvent{
		TenantID:  request.TenantID(),
		EntityID:  request.ID(),
		OwnerID:   request.OwnerID(),
		ActorID:   actorID,
		OldStatus: oldStatus,
		NewStatus: request.Status(),
		Reason:    reason,
		Timestamp: now,
	}
}
