// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypeNotification = "notification"
	MessageTypeGamification = "gamification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is the wire frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type envelope struct {
	userID  string
	message Message
}

// Hub tracks connections per user and routes messages to them.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	deliver    chan envelope
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		deliver:    make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes registrations and deliveries until ctx is done,
// then closes every client. Lifecycle events are handled before deliveries
// so a message never reaches a client that already left.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case env := <-h.deliver:
			h.sendToUser(env.userID, env.message)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Debug().Str("user_id", c.userID).Uint64("client_id", c.id).Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes c's send channel once. Caller holds h.mu.
func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WSConnections.Dec()
	logging.Debug().Str("user_id", c.userID).Uint64("client_id", c.id).Msg("websocket client disconnected")
}

func (h *Hub) sendToUser(userID string, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[userID]
	if len(set) == 0 {
		return
	}

	// Ordered by id so delivery order is stable across runs.
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			logging.Warn().Str("user_id", userID).Uint64("client_id", c.id).Msg("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	closed := 0
	for _, set := range h.clients {
		for c := range set {
			close(c.send)
			metrics.WSConnections.Dec()
			closed++
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// SendToUser queues message for every connection of userID.
func (h *Hub) SendToUser(userID, messageType string, data interface{}) {
	select {
	case h.deliver <- envelope{userID: userID, message: Message{Type: messageType, Data: data}}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("websocket delivery queue full, dropping message")
	}
}

// Attach registers c and starts its pumps. It returns false when the hub
// has stopped, in which case the caller still owns the connection.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		c.Start()
		return true
	case <-h.done:
		return false
	}
}

// NotifyInbox forwards a new notification-center row to its owner.
func (h *Hub) NotifyInbox(n *models.InAppNotification) {
	h.SendToUser(n.UserID, MessageTypeNotification, n)
}

// NotifyGamification forwards an updated streak state to its owner.
func (h *Hub) NotifyGamification(state *models.GamificationState) {
	h.SendToUser(state.UserID, MessageTypeGamification, state)
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserClientCount returns the number of open connections of userID.
func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// MarshalMessage encodes a frame.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
