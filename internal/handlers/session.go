package handlers

import (
	"encoding/json"
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/models"
	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// SessionHandler handles session stop, direct re-open and message relay
type SessionHandler struct {
	registry *services.SessionRegistry
	relay    *services.Relay
	feedback *services.FeedbackService
	notifier services.Notifier
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *services.SessionRegistry, relay *services.Relay, feedback *services.FeedbackService, notifier services.Notifier) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		relay:    relay,
		feedback: feedback,
		notifier: notifier,
	}
}

// Stop handles DELETE /api/v1/session. Both former members receive a
// session-closed event carrying the feedback prompt.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	session, err := h.registry.Close(userID)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	for _, id := range []int64{session.UserAID, session.UserBID} {
		payload := map[string]interface{}{
			"session_id":      session.ID,
			"feedback_prompt": true,
		}
		if err := h.notifier.NotifyUser(id, services.EventSessionClosed, payload); err != nil {
			log.Debug().Err(err).Int64("user_id", id).Msg("Failed to notify session close")
		}
	}

	log.Info().
		Str("session_id", session.ID).
		Int64("user_id", userID).
		Msg("Session stopped")
	w.WriteHeader(http.StatusNoContent)
}

// ReopenRequest represents a direct re-open request body
type ReopenRequest struct {
	PartnerID int64 `json:"partner_id"`
}

// Reopen handles POST /api/v1/sessions: opens a session directly with a
// mutual-affinity partner, bypassing candidate selection.
func (h *SessionHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req ReopenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PartnerID <= 0 {
		respondError(w, "partner_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.feedback.Reopen(ctx, userID, req.PartnerID)
	if err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("partner_id", req.PartnerID).
			Msg("Failed to reopen session")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// SendMessage handles POST /api/v1/session/messages
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var payload models.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch payload.Kind {
	case models.PayloadText, models.PayloadImage, models.PayloadAudio, models.PayloadFile, models.PayloadSticker:
	default:
		respondError(w, "unknown payload kind", http.StatusBadRequest)
		return
	}

	if err := h.relay.Send(ctx, userID, &payload); err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
