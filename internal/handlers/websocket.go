package handlers

import (
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections for outbound event delivery
type WebSocketHandler struct {
	hub         *services.Hub
	authService *services.AuthService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.Hub, authService *services.AuthService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.authService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID)

	log.Info().Int64("user_id", userID).Msg("WebSocket connection established")

	// The socket is outbound-only: inbound events go through the HTTP
	// API. Reads are drained to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Int64("user_id", userID).Msg("WebSocket connection closed")
			return
		}
	}
}
