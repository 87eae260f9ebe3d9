package services

import (
	"context"
	"fmt"
	"time"

	"anon-match-backend/internal/config"
	"anon-match-backend/internal/metrics"
	"anon-match-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// EntitlementService grants and checks VIP, boost and superlike credits,
// enforces one-time promo code redemption, and applies purchase grants
// idempotently.
type EntitlementService struct {
	profiles ProfileStore
	store    EntitlementStore
	notifier Notifier
	cfg      config.EntitlementsConfig
	now      func() time.Time
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(profiles ProfileStore, store EntitlementStore, notifier Notifier, cfg config.EntitlementsConfig) *EntitlementService {
	return &EntitlementService{
		profiles: profiles,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RedeemCode redeems the one-time promotional code for an identity,
// granting a timed VIP window. Redemption is permanent per identity: it
// survives profile resets, and a second attempt fails with
// ErrAlreadyRedeemed.
func (s *EntitlementService) RedeemCode(ctx context.Context, userID int64) error {
	if _, err := requireRegistered(ctx, s.profiles, userID); err != nil {
		return err
	}

	vipUntil := s.now().Add(s.cfg.PromoVIPDuration)
	redeemed, err := s.store.RedeemCode(ctx, userID, vipUntil)
	if err != nil {
		return err
	}
	if !redeemed {
		s.notify(userID, EventRedemptionRejected, map[string]interface{}{"reason": "already_redeemed"})
		return ErrAlreadyRedeemed
	}

	metrics.GrantsApplied.WithLabelValues("promo_vip").Inc()
	log.Info().Int64("user_id", userID).Time("vip_until", vipUntil).Msg("Promo code redeemed")
	s.notify(userID, EventGrantConfirmed, map[string]interface{}{
		"grant":          "vip",
		"vip_expires_at": vipUntil,
	})
	return nil
}

// ConfirmPurchase applies the grant for a provider-confirmed purchase.
// The confirmation record and the grant commit in one transaction, so a
// failed grant leaves the reference unrecorded and redelivery retries it.
// A replayed confirmation of an applied grant is absorbed with
// ErrDuplicateConfirmation and no second grant.
func (s *EntitlementService) ConfirmPurchase(ctx context.Context, userID int64, productKind, providerRef string) error {
	if _, err := requireRegistered(ctx, s.profiles, userID); err != nil {
		return err
	}

	var (
		fresh   bool
		err     error
		payload = map[string]interface{}{"grant": productKind}
	)
	switch productKind {
	case models.ProductVIPForever:
		fresh, err = s.store.ConfirmVIPForever(ctx, userID, providerRef)
	case models.ProductBoost:
		until := s.now().Add(s.cfg.BoostDuration)
		fresh, err = s.store.ConfirmBoost(ctx, userID, providerRef, until)
		payload["boost_expires_at"] = until
	case models.ProductSuperlikes:
		fresh, err = s.store.ConfirmSuperlikes(ctx, userID, providerRef, s.cfg.SuperlikePackN)
		payload["credits"] = s.cfg.SuperlikePackN
	default:
		return fmt.Errorf("unknown product kind %q", productKind)
	}
	if err != nil {
		return err
	}
	if !fresh {
		log.Info().
			Int64("user_id", userID).
			Str("provider_ref", providerRef).
			Msg("Duplicate purchase confirmation absorbed")
		return ErrDuplicateConfirmation
	}

	metrics.GrantsApplied.WithLabelValues(productKind).Inc()
	log.Info().
		Int64("user_id", userID).
		Str("product_kind", productKind).
		Str("provider_ref", providerRef).
		Msg("Purchase grant applied")
	s.notify(userID, EventGrantConfirmed, payload)
	return nil
}

// GrantVIP grants VIP directly. A nil expiry is permanent.
func (s *EntitlementService) GrantVIP(ctx context.Context, userID int64, expiresAt *time.Time) error {
	if err := s.store.GrantVIP(ctx, userID, expiresAt); err != nil {
		return err
	}
	s.notify(userID, EventGrantConfirmed, map[string]interface{}{"grant": "vip"})
	return nil
}

// GrantBoost grants a timed visibility boost
func (s *EntitlementService) GrantBoost(ctx context.Context, userID int64, duration time.Duration) error {
	until := s.now().Add(duration)
	if err := s.store.GrantBoost(ctx, userID, until); err != nil {
		return err
	}
	s.notify(userID, EventGrantConfirmed, map[string]interface{}{
		"grant":            "boost",
		"boost_expires_at": until,
	})
	return nil
}

// AddSuperlikeCredits adds spendable superlike credits
func (s *EntitlementService) AddSuperlikeCredits(ctx context.Context, userID int64, n int) error {
	if err := s.store.AddSuperlikeCredits(ctx, userID, n); err != nil {
		return err
	}
	s.notify(userID, EventGrantConfirmed, map[string]interface{}{
		"grant":   "superlikes",
		"credits": n,
	})
	return nil
}

func (s *EntitlementService) notify(userID int64, event string, payload interface{}) {
	if err := s.notifier.NotifyUser(userID, event, payload); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Str("event", event).Msg("Failed to notify grant event")
	}
}
