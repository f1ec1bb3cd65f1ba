package workflowlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only row of transition history for an entity instance.
type Entry struct {
	ID                uint
	TenantID          uuid.UUID
	RelatedEntityType string
	RelatedEntityID   uuid.UUID
	OldStatus         string
	NewStatus         string
	UserID            uuid.UUID
	Comment           string
	CreatedAt         time.Time
}

type FindParams struct {
	RelatedEntityType string
	RelatedEntityID   uuid.UUID
	Limit             int
	Offset            int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, entry *Entry) error
}
