package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/timekeeper/modules/attendance/domain/aggregates/attendancerecord"
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

// AttendanceEventsHandler reacts to committed attendance status changes.
// Side effects run best effort: a failing sink is logged and skipped, the
// already-committed business mutation is never affected.
type AttendanceEventsHandler struct {
	pool          *pgxpool.Pool
	audit         auditWriter
	workflowLogs  workflowLogWriter
	notifications notifier
	localizer     *i18n.Localizer
	logger        *logrus.Logger
}

func RegisterAttendanceEventsHandler(
	bus eventbus.EventBus,
	pool *pgxpool.Pool,
	audit auditWriter,
	workflowLogs workflowLogWriter,
	notifications notifier,
	bundle *i18n.Bundle,
	logger *logrus.Logger,
) *AttendanceEventsHandler {
	handler := &AttendanceEventsHandler{
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

func (h *AttendanceEventsHandler) onStatusChanged(event attendancerecord.StatusChangedEvent) {
	ctx := composables.WithPool(context.Background(), h.pool)
	ctx = composables.WithTenantID(ctx, event.TenantID)
	if h.localizer != nil {
		ctx = intl.WithLocalizer(ctx, h.localizer)
	}

	details := fmt.Sprintf("Attendance record %s status changed: %s -> %s", event.EntityID, event.OldStatus, event.NewStatus)
	if err := h.audit.LogEvent(ctx, auditlog.EventTypeAttendanceStatusChange, event.ActorID, details); err != nil {
		h.logger.WithError(err).
			WithField("entity_id", event.EntityID).
			Error("failed to write attendance audit entry")
	}

	entry := &workflowlog.Entry{
		TenantID:          event.TenantID,
		RelatedEntityType: attendancerecord.EntityType,
		RelatedEntityID:   event.EntityID,
		OldStatus:         event.OldStatus,
		NewStatus:         event.NewStatus,
		UserID:            event.ActorID,
		Comment:           h.comment(ctx, event),
	}
	if err := h.workflowLogs.Create(ctx, entry); err != nil {
		h.logger.WithError(err).
			WithField("entity_id", event.EntityID).
			Error("failed to write attendance workflow log entry")
	}

	h.notify(ctx, event)
}

func (h *AttendanceEventsHandler) comment(ctx context.Context, event attendancerecord.StatusChangedEvent) string {
	comment := intl.MustT(ctx, "Workflow.Comments."+strings.ToUpper(event.NewStatus), nil)
	if event.Reason != "" {
		comment += ": " + event.Reason
	}
	return comment
}

// Owners are notified only when their record leaves the normal flow:
// back to draft or deleted. Approvals, rejections and submissions stay
// silent.
func (h *AttendanceEventsHandler) notify(ctx context.Context, event attendancerecord.StatusChangedEvent) {
	var titleKey, bodyKey string
	switch {
	case status.Is(event.NewStatus, status.Draft):
		titleKey, bodyKey = "Notifications.Attendance.DraftTitle", "Notifications.Attendance.DraftBody"
	case status.Is(event.NewStatus, status.Deleted):
		titleKey, bodyKey = "Notifications.Attendance.DeletedTitle", "Notifications.Attendance.DeletedBody"
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
			Error("failed to notify attendance record owner")
	}
}
