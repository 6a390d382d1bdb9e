package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupChat returns the group address carrying direct messages for a user.
func GroupChat(userID uuid.UUID) string {
	return "chat_user_" + userID.String()
}

// GroupNotifications returns the group address carrying system
// notifications for a user.
func GroupNotifications(userID uuid.UUID) string {
	return "notifications_" + userID.String()
}

// Hub routes payloads to groups of connected clients. A group address is
// a per-user routing key; every open connection a user holds is
// subscribed to their groups, so fan-out reaches all their devices.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Subscribe adds the client to a group.
func (h *Hub) Subscribe(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.groups[group]
	if !ok {
		clients = make(map[*Client]struct{})
		h.groups[group] = clients
	}
	clients[c] = struct{}{}
}

// Unsubscribe removes the client from every group it joined.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group, clients := range h.groups {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.groups, group)
			}
		}
	}
}

// Publish marshals the payload and delivers it to every client in the
// group. Delivery is best-effort: a client whose send buffer is full is
// skipped rather than blocking the publisher.
func (h *Hub) Publish(group string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal ws payload", zap.String("group", group), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("ws client send buffer full, dropping frame",
				zap.String("group", group),
			)
		}
	}
}

// GroupSize reports how many clients a group currently has.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
