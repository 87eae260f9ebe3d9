package repository

import (
	"context"
	"fmt"
	"time"

	"anon-match-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository handles database operations for grants, one-time
// promo code redemption and purchase confirmation idempotency
type EntitlementRepository struct {
	db *pgxpool.Pool
}

// NewEntitlementRepository creates a new entitlement repository
func NewEntitlementRepository(db *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// GrantVIP sets the VIP flag with an expiry. A nil expiry grants
// permanent VIP.
func (r *EntitlementRepository) GrantVIP(ctx context.Context, userID int64, expiresAt *time.Time) error {
	query := `UPDATE profiles SET vip = TRUE, vip_expires_at = $2 WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to grant vip: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantBoost sets the boost expiry
func (r *EntitlementRepository) GrantBoost(ctx context.Context, userID int64, expiresAt time.Time) error {
	query := `UPDATE profiles SET boost_expires_at = $2 WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to grant boost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSuperlikeCredits atomically increments the superlike credit count
func (r *EntitlementRepository) AddSuperlikeCredits(ctx context.Context, userID int64, n int) error {
	query := `UPDATE profiles SET superlike_credits = superlike_credits + $2 WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, userID, n)
	if err != nil {
		return fmt.Errorf("failed to add superlike credits: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RedeemCode atomically marks the one-time promo code as redeemed for an
// identity and grants the timed VIP window in the same transaction.
// Returns false without granting when the identity already redeemed,
// regardless of any profile resets in between.
func (r *EntitlementRepository) RedeemCode(ctx context.Context, userID int64, vipUntil time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin redemption: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO code_redemptions (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record redemption: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles SET vip = TRUE, vip_expires_at = $2 WHERE user_id = $1`,
		userID, vipUntil); err != nil {
		return false, fmt.Errorf("failed to grant promo vip: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit redemption: %w", err)
	}
	return true, nil
}

// ConfirmVIPForever records a provider-issued purchase reference and
// grants permanent VIP in one transaction. Returns false without granting
// when the reference was already seen; a failed grant rolls the
// confirmation record back so redelivery can retry it.
func (r *EntitlementRepository) ConfirmVIPForever(ctx context.Context, userID int64, providerRef string) (bool, error) {
	return r.confirmPurchase(ctx, userID, models.ProductVIPForever, providerRef,
		`UPDATE profiles SET vip = TRUE, vip_expires_at = NULL WHERE user_id = $1`,
		userID)
}

// ConfirmBoost records a purchase reference and grants a timed boost in
// one transaction
func (r *EntitlementRepository) ConfirmBoost(ctx context.Context, userID int64, providerRef string, until time.Time) (bool, error) {
	return r.confirmPurchase(ctx, userID, models.ProductBoost, providerRef,
		`UPDATE profiles SET boost_expires_at = $2 WHERE user_id = $1`,
		userID, until)
}

// ConfirmSuperlikes records a purchase reference and adds superlike
// credits in one transaction
func (r *EntitlementRepository) ConfirmSuperlikes(ctx context.Context, userID int64, providerRef string, n int) (bool, error) {
	return r.confirmPurchase(ctx, userID, models.ProductSuperlikes, providerRef,
		`UPDATE profiles SET superlike_credits = superlike_credits + $2 WHERE user_id = $1`,
		userID, n)
}

func (r *EntitlementRepository) confirmPurchase(ctx context.Context, userID int64, productKind, providerRef, grantQuery string, grantArgs ...interface{}) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin confirmation: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO purchase_confirmations (provider_ref, user_id, product_kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_ref) DO NOTHING
	`, providerRef, userID, productKind)
	if err != nil {
		return false, fmt.Errorf("failed to record confirmation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	grant, err := tx.Exec(ctx, grantQuery, grantArgs...)
	if err != nil {
		return false, fmt.Errorf("failed to apply purchase grant: %w", err)
	}
	if grant.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit confirmation: %w", err)
	}
	return true, nil
}
