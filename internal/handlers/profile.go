package handlers

import (
	"encoding/json"
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Register handles PUT /api/v1/profile
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.Register(ctx, userID, &req)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to register profile")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().Int64("user_id", userID).Msg("Profile registered")
	respondJSON(w, http.StatusOK, profile)
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	profile, err := h.profileService.Get(ctx, userID)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// PushTokenRequest represents the request body for storing a push token
type PushTokenRequest struct {
	Token string `json:"token"`
}

// SetPushToken handles PUT /api/v1/profile/push-token
func (h *ProfileHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		respondError(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := h.profileService.SetPushToken(ctx, userID, req.Token); err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /api/v1/profile
func (h *ProfileHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.profileService.Reset(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to reset profile")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().Int64("user_id", userID).Msg("Profile reset")
	w.WriteHeader(http.StatusNoContent)
}
