package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/timekeeper/modules/leave/domain/aggregates/leaverequest"
	"github.com/iota-uz/timekeeper/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/workflowlog"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/intl"
)

type auditWriter interface {
	LogEvent(ctx context.Context, eventType string, actorID uuid.UUID, details string) error
}

type workflowLogWriter interface {
	Create(ctx context.Context, entry *workflowlog.Entry) error
}

type notifier interface {
	CreateAndSend(ctx context.Context, userID uuid.UUID, notificationType, title, message string) (*notification.Notification, error)
}

// LeaveEventsHandler mirrors the attendance listener for leave requests:
// one audit entry, one workflow log entry, and a notification to the owner
// only on draft or deleted outcomes. Sink failures are logged, never
// propagated.
type LeaveEventsHandler struct {
	pool          *pgxpool.Pool
	audit         auditWriter
	workflowLogs  workflowLogWriter
	notifications notifier
	localizer     *i18n.Localizer
	logger        *logrus.Logger
}

func RegisterLeaveEventsHandler(
	bus eventbus.EventBus,
	pool *pgxpool.Pool,
	audit auditWriter,
	workflowLogs workflowLogWriter,
	notifications notifier,
	bundle *i18n.Bundle,
	logger *logrus.Logger,
) *LeaveEventsHandler {
	handler := &LeaveEventsHandler{
		pool:          pool,
		audit:         audit,
		workflowLogs:  workflowLogs,
		notifications: notifications,
		logger:        logger,
	}
	if bundle != nil {
		handler.localizer = i18n.NewLocalizer(bundle, "en")
	}
	bus.Subscribe(handler.onStatusChanged)
	return handler
}

func (h *LeaveEventsHandler) onStatusChanged(event leaverequest.StatusChangedEvent) {
	ctx := composables.WithPool(context.Background(), h.pool)
	ctx = composables.WithTenantID(ctx, event.TenantID)
	if h.localizer != nil {
		ctx = intl.WithLocalizer(ctx, h.localizer)
	}

	details := fmt.Sprintf("Leave request %s status changed: %s -> %s", event.EntityID, event.OldStatus, event.NewStatus)
	if err := h.audit.LogEvent(ctx, auditlog.EventTypeLeaveStatusChange, event.ActorID, details); err != nil {
		h.logger.WithError(err).
			WithField("entity_id", event.EntityID).
			Error("failed to write leave audit entry")
	}

	entry := &workflowlog.Entry{
		TenantID:          event.TenantID,
		RelatedEntityType: leaverequest.EntityType,
		RelatedEntityID:   event.EntityID,
		OldStatus:         event.OldStatus,
		NewStatus:         event.NewStatus,
		UserID:            event.ActorID,
		Comment:           h.comment(ctx, event),
	}
	if err := h.workflowLogs.Create(ctx, entry); err != nil {
		h.logger.WithError(err).
			WithField("entity_id", event.EntityID).
			Error("failed to write leave workflow log entry")
	}

	h.notify(ctx, event)
}

func (h *LeaveEventsHandler) comment(ctx context.Context, event leaverequest.StatusChangedEvent) string {
	comment := intl.MustT(ctx, "Workflow.Comments."+strings.ToUpper(event.NewStatus), nil)
	if event.Reason != "" {
		comment += ": " + event.Reason
	}
	return comment
}

func (h *LeaveEventsHandler) notify(ctx context.Context, event leaverequest.StatusChangedEvent) {
	var titleKey, bodyKey string
	switch {
	case status.Is(event.NewStatus, status.Draft):
		titleKey, bodyKey = "Notifications.Leave.DraftTitle", "Notifications.Leave.DraftBody"
	case status.Is(event.NewStatus, status.Deleted):
		titleKey, bodyKey = "Notifications.Leave.DeletedTitle", "Notifications.Leave.DeletedBody"
	default:
		return
	}
	if _, err := h.notifications.CreateAndSend(
		ctx,
		event.OwnerID,
		notification.TypeWebsocket,
		intl.MustT(ctx, titleKey, nil),
		intl.MustT(ctx, bodyKey, nil),
	); err != nil {
		h.logger.WithError(err).
			WithField("entity_id", event.EntityID).
			Error("failed to notify leave request owner")
	}
}
