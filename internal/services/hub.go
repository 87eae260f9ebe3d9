package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is the envelope delivered to users over the WebSocket hub
type Event struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// wsClient wraps a connection with a write mutex; gorilla/websocket
// allows at most one concurrent writer per connection.
type wsClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// Hub manages WebSocket connections keyed by identity and fans outbound
// events to them. When a user has no live connection, delivery falls back
// to push if a token is on file.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]*wsClient
	profiles ProfileStore
	push     *PushSender
}

// NewHub creates a new hub
func NewHub(profiles ProfileStore, push *PushSender) *Hub {
	return &Hub{
		clients:  make(map[int64]*wsClient),
		profiles: profiles,
		push:     push,
	}
}

// Register registers a new WebSocket connection for a user, closing any
// existing one.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.clients[userID]; exists {
		existing.conn.Close()
	}
	h.clients[userID] = &wsClient{conn: conn}

	log.Info().Int64("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's WebSocket connection
func (h *Hub) Unregister(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[userID]; exists {
		client.conn.Close()
		delete(h.clients, userID)
		log.Info().Int64("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// IsOnline checks if a user has a live connection
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// NotifyUser delivers an event to a user. Online users get it over the
// WebSocket; offline users with a push token get a best-effort alert.
func (h *Hub) NotifyUser(userID int64, eventKind string, payload interface{}) error {
	h.mu.RLock()
	client, online := h.clients[userID]
	h.mu.RUnlock()

	if !online {
		h.pushFallback(userID, eventKind)
		return fmt.Errorf("user %d is not connected", userID)
	}

	data, err := json.Marshal(Event{Kind: eventKind, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	client.writeMu.Lock()
	err = client.conn.WriteMessage(websocket.TextMessage, data)
	client.writeMu.Unlock()
	if err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

func (h *Hub) pushFallback(userID int64, eventKind string) {
	if h.push == nil {
		return
	}

	profile, err := h.profiles.Get(context.Background(), userID)
	if err != nil || profile.PushToken == nil {
		return
	}

	if err := h.push.Send(*profile.PushToken, eventKind); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Push fallback failed")
	}
}
