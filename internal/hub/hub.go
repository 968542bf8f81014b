package hub

import (
	"context"
	"encoding/json"
	"sync"
)

// EventNotification carries a stored notification.
const EventNotification = "notification"

// Event is the envelope of every message on a user stream.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps payload in an Event of the given type.
func Encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Payload: raw})
}

// Decode reads an envelope produced by Encode.
func Decode(message []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(message, &event)
	return event, err
}

// Client is one open stream of a user. The SSE handler drains it.
type Client chan []byte

// Hub fans events out to every open stream of a user.
type Hub struct {
	users map[uint]map[Client]bool
	mu    sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		users: make(map[uint]map[Client]bool),
	}
}

// Subscribe registers a client for userID.
func (h *Hub) Subscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// SendRaw delivers an already encoded event. Slow clients miss events instead of blocking the hub.
func (h *Hub) SendRaw(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.users[userID] {
		select {
		case client <- message:
		default:
		}
	}
}

// Connected reports how many streams userID has open. The stream handler
// announces it to the client once subscribed.
func (h *Hub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// PublishUser delivers payload to the local streams of userID. It lets the hub
// stand in for the redis notifier on a single instance.
func (h *Hub) PublishUser(_ context.Context, userID uint, payload []byte) error {
	h.SendRaw(userID, payload)
	return nil
}
