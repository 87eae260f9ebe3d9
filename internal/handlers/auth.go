package handlers

import (
	"encoding/json"
	"net/http"

	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler issues gateway tokens for external identities
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// TokenRequest represents the request body for issuing a token
type TokenRequest struct {
	UserID int64 `json:"user_id"`
}

// TokenResponse carries the issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}

// IssueToken handles POST /api/v1/auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.GenerateJWT(req.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to issue token")
		respondError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token})
}
