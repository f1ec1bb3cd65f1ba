package channels

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/pkg/composables"
)

type wsPayload struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// WebsocketChannel pushes notifications to the recipient's open websocket
// connections. It doubles as the upgrade handler connections register
// through; delivery to a user with no open connection is a failure so the
// notification row records it.
type WebsocketChannel struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu    sync.RWMutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
}

func NewWebsocketChannel(logger *logrus.Logger) *WebsocketChannel {
	return &WebsocketChannel{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[uuid.UUID]map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered for
// the authenticated user until it closes.
func (c *WebsocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	usr, err := composables.UseUser(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("websocket upgrade failed")
		}
		return
	}

	c.register(usr.ID(), conn)
	go c.readLoop(usr.ID(), conn)
}

func (c *WebsocketChannel) register(userID uuid.UUID, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[userID] == nil {
		c.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	c.conns[userID][conn] = struct{}{}
}

func (c *WebsocketChannel) unregister(userID uuid.UUID, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(c.conns, userID)
		}
	}
	_ = conn.Close()
}

// readLoop drains control frames; the first read error drops the connection.
func (c *WebsocketChannel) readLoop(userID uuid.UUID, conn *websocket.Conn) {
	defer c.unregister(userID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *WebsocketChannel) Send(_ context.Context, recipient user.User, n *notification.Notification) error {
	c.mu.RLock()
	set := c.conns[recipient.ID()]
	targets := make([]*websocket.Conn, 0, len(set))
	for conn := range set {
		targets = append(targets, conn)
	}
	c.mu.RUnlock()

	if len(targets) == 0 {
		return fmt.Errorf("user %s has no open websocket connection", recipient.ID())
	}

	payload := wsPayload{Type: n.Type, Title: n.Title, Message: n.Message}
	var lastErr error
	delivered := false
	for _, conn := range targets {
		if err := conn.WriteJSON(payload); err != nil {
			lastErr = err
			c.unregister(recipient.ID(), conn)
			continue
		}
		delivered = true
	}
	if !delivered {
		return fmt.Errorf("failed to deliver on any connection: %w", lastErr)
	}
	return nil
}
