package channels

import (
	"context"
	"fmt"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/pkg/eskiz"
)

// SMSChannel delivers notifications through the Eskiz SMS gateway.
type SMSChannel struct {
	sender eskiz.Sender
}

func NewSMSChannel(sender eskiz.Sender) *SMSChannel {
	return &SMSChannel{sender: sender}
}

func (c *SMSChannel) Send(ctx context.Context, recipient user.User, n *notification.Notification) error {
	if recipient.Phone() == "" {
		return fmt.Errorf("recipient %s has no phone number", recipient.ID())
	}
	return c.sender.SendSMS(ctx, recipient.Phone(), n.Title+": "+n.Message)
}
