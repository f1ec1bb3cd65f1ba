package channels

import (
	"context"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
)

// DummyChannel accepts every notification without delivering anything.
// Registered in tests and for notification types with no real transport.
type DummyChannel struct{}

func NewDummyChannel() *DummyChannel {
	return &DummyChannel{}
}

func (c *DummyChannel) Send(_ context.Context, _ user.User, _ *notification.Notification) error {
	return nil
}
