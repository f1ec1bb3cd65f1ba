package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Channel keys a notification type resolves to. An unknown key is treated
// as a failed delivery, never an error.
const (
	TypeEmail     = "EMAIL"
	TypeWebsocket = "WEBSOCKET"
	TypeSMS       = "SMS"
	TypeDummy     = "DUMMY"
)

type Notification struct {
	ID        uint
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Type      string
	Title     string
	Message   string
	Status    Status
	Error     string
	SentAt    *time.Time
	CreatedAt time.Time
}

type FindParams struct {
	UserID uuid.UUID
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Notification, error)
	Create(ctx context.Context, n *Notification) error
	UpdateStatus(ctx context.Context, id uint, status Status, errMsg string, sentAt *time.Time) error
}
