package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/timekeeper/pkg/composables"
)

type AuditService struct {
	repo auditlog.Repository
}

func NewAuditService(repo auditlog.Repository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.AuditLog, int64, error) {
	if params == nil {
		params = &auditlog.FindParams{}
	}

	logs, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

func (s *AuditService) Create(ctx context.Context, log *auditlog.AuditLog) error {
	if log == nil {
		return errors.New("audit log payload is required")
	}
	return s.repo.Create(ctx, log)
}

// LogEvent appends an audit entry for an actor, picking up request metadata
// from the context when present.
func (s *AuditService) LogEvent(ctx context.Context, eventType string, actorID uuid.UUID, details string) error {
	entry := &auditlog.AuditLog{
		EventType: eventType,
		ActorID:   actorID,
		Details:   details,
	}
	if ip, ok := composables.UseIP(ctx); ok {
		entry.IP = ip
	}
	if ua, ok := composables.UseUserAgent(ctx); ok {
		entry.UserAgent = ua
	}
	return s.repo.Create(ctx, entry)
}
