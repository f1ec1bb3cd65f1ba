package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/configuration"
)

// Channel delivers a persisted notification to its recipient. A returned
// error marks the notification FAILED; it never propagates further.
type Channel interface {
	Send(ctx context.Context, recipient user.User, n *notification.Notification) error
}

type NotificationService struct {
	repo     notification.Repository
	users    user.Repository
	channels map[string]Channel
	logger   *logrus.Logger
}

func NewNotificationService(repo notification.Repository, users user.Repository, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		users:    users,
		channels: make(map[string]Channel),
		logger:   logger,
	}
}

func (s *NotificationService) RegisterChannel(key string, ch Channel) {
	s.channels[key] = ch
}

func (s *NotificationService) List(ctx context.Context, params *notification.FindParams) ([]*notification.Notification, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*notification.Notification, error) {
		return s.repo.List(txCtx, params)
	})
}

// CreateAndSend persists the notification as PENDING, dispatches it through
// the channel its type maps to, and records SENT or FAILED. Delivery
// failure is swallowed: a failed notification must not block the business
// transition that caused it. The returned error covers persistence only.
func (s *NotificationService) CreateAndSend(ctx context.Context, userID uuid.UUID, notificationType, title, message string) (*notification.Notification, error) {
	n := &notification.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Status:  notification.StatusPending,
	}
	if err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, n)
	}); err != nil {
		return nil, err
	}

	sendErr := s.dispatch(ctx, n)

	now := time.Now()
	status := notification.StatusSent
	errMsg := ""
	sentAt := &now
	if sendErr != nil {
		status = notification.StatusFailed
		errMsg = sendErr.Error()
		sentAt = nil
		if s.logger != nil {
			s.logger.WithError(sendErr).
				WithField("notification_id", n.ID).
				WithField("type", n.Type).
				Warn("notification delivery failed")
		}
	}

	if err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateStatus(txCtx, n.ID, status, errMsg, sentAt)
	}); err != nil {
		return nil, err
	}
	n.Status = status
	n.Error = errMsg
	n.SentAt = sentAt
	return n, nil
}

// dispatch resolves the channel and recipient and invokes Send under a
// bounded timeout. Panics inside a channel are contained here.
func (s *NotificationService) dispatch(ctx context.Context, n *notification.Notification) (err error) {
	ch, ok := s.channels[n.Type]
	if !ok {
		return fmt.Errorf("no channel registered for type %s", n.Type)
	}

	recipient, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		return s.users.GetByID(txCtx, n.UserID)
	})
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	timeout := configuration.Use().Notifications.DispatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", n.Type, r)
		}
	}()
	return ch.Send(sendCtx, recipient, n)
}
