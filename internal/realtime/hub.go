// Package realtime is the broadcast gateway: the only code that touches the
// WebSocket transport. Everything else hands it events to fan out.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// kickFlushGrace gives the writer a moment to flush the kicked notice before
// the connection is torn down.
const kickFlushGrace = 250 * time.Millisecond

// Hub maintains the set of connected clients for the single classroom session
// and broadcasts messages to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // connection id -> client
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.id), zap.String("role", c.role))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.id))
}

// Broadcast sends an event to every connected client. Sends never block: a
// client whose buffer is full misses the message and catches up from later
// state (tallies and rosters are always full snapshots).
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := envelope(event, payload)
	if err != nil {
		h.logger.Warn("broadcast payload marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// SendTo sends an event to one connection.
func (h *Hub) SendTo(clientID, event string, payload interface{}) {
	msg, err := envelope(event, payload)
	if err != nil {
		h.logger.Warn("send payload marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Kick notifies the connection bound to a student that it has been removed,
// then closes it once the notice has had a chance to flush. Returns false when
// no connection is bound to that student.
func (h *Hub) Kick(studentID, reason string) bool {
	h.mu.RLock()
	var target *Client
	for _, c := range h.clients {
		if c.boundStudentID() == studentID {
			target = c
			break
		}
	}
	h.mu.RUnlock()

	if target == nil {
		return false
	}

	msg, err := envelope(EventKicked, kickedNotice{Reason: reason})
	if err == nil {
		select {
		case target.send <- msg:
		default:
		}
	}
	if conn := target.conn; conn != nil {
		time.AfterFunc(kickFlushGrace, func() { _ = conn.Close() })
	}
	h.logger.Info("client kicked", zap.String("client_id", target.id), zap.String("student_id", studentID))
	return true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func envelope(event string, payload interface{}) (WSMessage, error) {
	msg := WSMessage{Event: event}
	if payload == nil {
		return msg, nil
	}
	switch v := payload.(type) {
	case []byte:
		msg.Data = v
	case json.RawMessage:
		msg.Data = v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return msg, err
		}
		msg.Data = data
	}
	return msg, nil
}
