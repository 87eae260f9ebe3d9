package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"anon-match-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// statusFromError maps core error kinds to HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidPreferenceRange):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSelfTarget):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoCandidate):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotInSession):
		return http.StatusConflict
	case errors.Is(err, services.ErrAlreadyInSession):
		return http.StatusConflict
	case errors.Is(err, services.ErrAlreadyRedeemed):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoAffinity):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDeliveryFailure):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
