package channels

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/pkg/configuration"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel delivers notifications over SMTP using the configured relay.
type EmailChannel struct {
	opts     configuration.SMTPOptions
	sendMail sendMailFunc
}

func NewEmailChannel(opts configuration.SMTPOptions) *EmailChannel {
	return &EmailChannel{
		opts:     opts,
		sendMail: smtp.SendMail,
	}
}

func (c *EmailChannel) Send(_ context.Context, recipient user.User, n *notification.Notification) error {
	if !c.opts.Configured() {
		return fmt.Errorf("smtp is not configured")
	}
	if recipient.Email() == "" {
		return fmt.Errorf("recipient %s has no email address", recipient.ID())
	}

	var auth smtp.Auth
	if c.opts.User != "" {
		auth = smtp.PlainAuth("", c.opts.User, c.opts.Password, c.opts.Host)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		c.opts.From,
		recipient.Email(),
		n.Title,
		n.Message,
	))
	addr := c.opts.Host + ":" + c.opts.Port
	return c.sendMail(addr, auth, c.opts.From, []string{recipient.Email()}, msg)
}
