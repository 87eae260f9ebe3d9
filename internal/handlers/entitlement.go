package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"anon-match-backend/internal/middleware"
	"anon-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// EntitlementHandler handles promo redemption and purchase confirmations
type EntitlementHandler struct {
	entitlements *services.EntitlementService
}

// NewEntitlementHandler creates a new entitlement handler
func NewEntitlementHandler(entitlements *services.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// RedeemCode handles POST /api/v1/promo/redeem
func (h *EntitlementHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.entitlements.RedeemCode(ctx, userID); err != nil {
		if !errors.Is(err, services.ErrAlreadyRedeemed) {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to redeem promo code")
		}
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"redeemed": true})
}

// PurchaseConfirmationRequest represents the payment provider webhook body
type PurchaseConfirmationRequest struct {
	UserID      int64  `json:"user_id"`
	ProductKind string `json:"product_kind"`
	ProviderRef string `json:"provider_ref"`
}

// ConfirmPurchase handles POST /api/v1/webhooks/purchase. Duplicate
// deliveries of the same provider reference are absorbed with a 200 so
// the provider stops retrying.
func (h *EntitlementHandler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PurchaseConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.ProductKind == "" || req.ProviderRef == "" {
		respondError(w, "user_id, product_kind and provider_ref are required", http.StatusBadRequest)
		return
	}

	err := h.entitlements.ConfirmPurchase(ctx, req.UserID, req.ProductKind, req.ProviderRef)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateConfirmation) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"applied": false})
			return
		}
		log.Error().
			Err(err).
			Int64("user_id", req.UserID).
			Str("provider_ref", req.ProviderRef).
			Msg("Failed to apply purchase confirmation")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"applied": true})
}
