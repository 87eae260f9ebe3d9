package handlers

import (
	"encoding/json"
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// MatchHandler handles candidate search and like/dislike decisions
type MatchHandler struct {
	match *services.MatchWorkflow
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(match *services.MatchWorkflow) *MatchHandler {
	return &MatchHandler{match: match}
}

// TargetRequest represents a like/dislike request body
type TargetRequest struct {
	TargetID int64 `json:"target_id"`
}

// RequestCandidate handles POST /api/v1/candidates/next
func (h *MatchHandler) RequestCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	candidate, err := h.match.RequestCandidate(ctx, userID)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": candidate.UserID,
		"gender":  candidate.Gender,
		"age":     candidate.Age,
	})
}

// Like handles POST /api/v1/likes
func (h *MatchHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID <= 0 {
		respondError(w, "target_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.match.Like(ctx, userID, req.TargetID)
	if err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("target_id", req.TargetID).
			Msg("Failed to process like")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	if result.Matched {
		log.Info().
			Int64("user_id", userID).
			Int64("target_id", req.TargetID).
			Str("session_id", result.Session.ID).
			Msg("Mutual like confirmed")
	}
	respondJSON(w, http.StatusOK, result)
}

// Dislike handles POST /api/v1/dislikes
func (h *MatchHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID <= 0 {
		respondError(w, "target_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.match.Dislike(ctx, userID, req.TargetID)
	if err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("target_id", req.TargetID).
			Msg("Failed to process dislike")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}
