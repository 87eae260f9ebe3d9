package handlers

import (
	"encoding/json"
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// FeedbackHandler handles post-session feedback and affinity listing
type FeedbackHandler struct {
	feedback *services.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// FeedbackRequest represents the request body for submitting feedback
type FeedbackRequest struct {
	TargetID int64 `json:"target_id"`
	Liked    bool  `json:"liked"`
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID <= 0 {
		respondError(w, "target_id is required", http.StatusBadRequest)
		return
	}

	mutual, err := h.feedback.Submit(ctx, userID, req.TargetID, req.Liked)
	if err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("target_id", req.TargetID).
			Msg("Failed to submit feedback")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"mutual_affinity": mutual,
	})
}

// ListAffinities handles GET /api/v1/affinities
func (h *FeedbackHandler) ListAffinities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	partners, err := h.feedback.ListAffinities(ctx, userID)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}
	if partners == nil {
		partners = []int64{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"partners": partners,
	})
}
