package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository handles database operations for blocks and
// post-session like feedback
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AddBlock records a directed block edge. Inserting an existing edge is a no-op.
func (r *LedgerRepository) AddBlock(ctx context.Context, blockerID, blockedID int64) error {
	query := `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("failed to add block: %w", err)
	}
	return nil
}

// IsBlocked reports whether a block exists between two identities in
// either direction
func (r *LedgerRepository) IsBlocked(ctx context.Context, userAID, userBID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	var blocked bool
	if err := r.db.QueryRow(ctx, query, userAID, userBID).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

// AddLikeFeedback records a directed "would talk again" edge
func (r *LedgerRepository) AddLikeFeedback(ctx context.Context, raterID, ratedID int64) error {
	query := `
		INSERT INTO like_feedback (rater_id, rated_id)
		VALUES ($1, $2)
		ON CONFLICT (rater_id, rated_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, raterID, ratedID); err != nil {
		return fmt.Errorf("failed to add like feedback: %w", err)
	}
	return nil
}

// HasMutualAffinity reports whether both directed feedback edges exist
// between two identities
func (r *LedgerRepository) HasMutualAffinity(ctx context.Context, userAID, userBID int64) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM like_feedback WHERE rater_id = $1 AND rated_id = $2)
		   AND EXISTS(SELECT 1 FROM like_feedback WHERE rater_id = $2 AND rated_id = $1)
	`
	var mutual bool
	if err := r.db.QueryRow(ctx, query, userAID, userBID).Scan(&mutual); err != nil {
		return false, fmt.Errorf("failed to check mutual affinity: %w", err)
	}
	return mutual, nil
}

// ListMutualAffinities returns the identities with which the user shares a
// mutual affinity
func (r *LedgerRepository) ListMutualAffinities(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT lf.rated_id
		FROM like_feedback lf
		JOIN like_feedback back ON back.rater_id = lf.rated_id AND back.rated_id = lf.rater_id
		WHERE lf.rater_id = $1
		ORDER BY lf.rated_id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutual affinities: %w", err)
	}
	defer rows.Close()

	var partners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan affinity row: %w", err)
		}
		partners = append(partners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read affinity rows: %w", err)
	}
	return partners, nil
}

// DeleteFor removes every block and feedback edge the identity
// participates in, on either side. Used by profile reset.
func (r *LedgerRepository) DeleteFor(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 OR blocked_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete blocks: %w", err)
	}
	if _, err := r.db.Exec(ctx,
		`DELETE FROM like_feedback WHERE rater_id = $1 OR rated_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete like feedback: %w", err)
	}
	return nil
}
