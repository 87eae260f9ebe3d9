package repository

import (
	"context"
	"errors"
	"fmt"

	"anon-match-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, gender, desired_gender, age, min_partner_age, max_partner_age,
	display_name, vip, vip_expires_at, boost_expires_at, superlike_credits, push_token, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.UserID, &p.Gender, &p.DesiredGender, &p.Age, &p.MinPartnerAge, &p.MaxPartnerAge,
		&p.DisplayName, &p.VIP, &p.VIPExpiresAt, &p.BoostExpiresAt, &p.SuperlikeCredits,
		&p.PushToken, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}

// Upsert creates a profile or replaces its preference fields on
// re-registration. Entitlement columns are preserved on conflict.
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, gender, desired_gender, age, min_partner_age, max_partner_age, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			gender = EXCLUDED.gender,
			desired_gender = EXCLUDED.desired_gender,
			age = EXCLUDED.age,
			min_partner_age = EXCLUDED.min_partner_age,
			max_partner_age = EXCLUDED.max_partner_age,
			display_name = EXCLUDED.display_name
	`
	_, err := r.db.Exec(ctx, query,
		p.UserID, p.Gender, p.DesiredGender, p.Age, p.MinPartnerAge, p.MaxPartnerAge, p.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by user ID
func (r *ProfileRepository) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, userID))
}

// Delete deletes a profile by user ID
func (r *ProfileRepository) Delete(ctx context.Context, userID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPushToken stores the push token used for offline notification delivery
func (r *ProfileRepository) SetPushToken(ctx context.Context, userID int64, token string) error {
	result, err := r.db.Exec(ctx, `UPDATE profiles SET push_token = $2 WHERE user_id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidates returns the candidate snapshot for a requester: every
// profile except the requester's own and any profile blocked in either
// direction. Preference filtering happens in the selector so the
// eligibility predicate has a single home.
func (r *ProfileRepository) ListCandidates(ctx context.Context, requesterID int64) ([]*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		WHERE p.user_id != $1
		AND NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = $1 AND b.blocked_id = p.user_id)
			   OR (b.blocker_id = p.user_id AND b.blocked_id = $1)
		)
	`
	rows, err := r.db.Query(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate rows: %w", err)
	}
	return candidates, nil
}
