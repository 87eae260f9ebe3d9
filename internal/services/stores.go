package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anon-match-backend/internal/models"
	"anon-match-backend/internal/repository"
)

// ProfileStore is the persistence surface services need for profiles.
// Implemented by repository.ProfileRepository; tests use in-memory fakes.
type ProfileStore interface {
	Upsert(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, userID int64) (*models.Profile, error)
	Delete(ctx context.Context, userID int64) error
	SetPushToken(ctx context.Context, userID int64, token string) error
	ListCandidates(ctx context.Context, requesterID int64) ([]*models.Profile, error)
}

// LedgerStore is the persistence surface for blocks and like feedback.
// Implemented by repository.LedgerRepository.
type LedgerStore interface {
	AddBlock(ctx context.Context, blockerID, blockedID int64) error
	IsBlocked(ctx context.Context, userAID, userBID int64) (bool, error)
	AddLikeFeedback(ctx context.Context, raterID, ratedID int64) error
	HasMutualAffinity(ctx context.Context, userAID, userBID int64) (bool, error)
	ListMutualAffinities(ctx context.Context, userID int64) ([]int64, error)
	DeleteFor(ctx context.Context, userID int64) error
}

// EntitlementStore is the persistence surface for grants, promo
// redemption and purchase idempotency. Implemented by
// repository.EntitlementRepository.
type EntitlementStore interface {
	GrantVIP(ctx context.Context, userID int64, expiresAt *time.Time) error
	GrantBoost(ctx context.Context, userID int64, expiresAt time.Time) error
	AddSuperlikeCredits(ctx context.Context, userID int64, n int) error
	RedeemCode(ctx context.Context, userID int64, vipUntil time.Time) (bool, error)
	ConfirmVIPForever(ctx context.Context, userID int64, providerRef string) (bool, error)
	ConfirmBoost(ctx context.Context, userID int64, providerRef string, until time.Time) (bool, error)
	ConfirmSuperlikes(ctx context.Context, userID int64, providerRef string, n int) (bool, error)
}

// Notifier delivers outbound events to users through the external
// delivery layer. Implemented by the WebSocket hub.
type Notifier interface {
	NotifyUser(userID int64, eventKind string, payload interface{}) error
}

// requireRegistered loads a profile, mapping a missing row to
// ErrNotRegistered.
func requireRegistered(ctx context.Context, profiles ProfileStore, userID int64) (*models.Profile, error) {
	profile, err := profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotRegistered, userID)
		}
		return nil, err
	}
	return profile, nil
}

// Outbound event kinds
const (
	EventCandidatePresented = "candidate_presented"
	EventMatchConfirmed     = "match_confirmed"
	EventSessionClosed      = "session_closed"
	EventMessageRelayed     = "message_relayed"
	EventGrantConfirmed     = "grant_confirmed"
	EventRedemptionRejected = "redemption_rejected"
)
