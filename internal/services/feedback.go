package services

import (
	"context"

	"anon-match-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// FeedbackService persists post-session feedback and exposes durable
// mutual affinities, independently of live sessions.
type FeedbackService struct {
	profiles ProfileStore
	ledger   LedgerStore
	registry *SessionRegistry
	notifier Notifier
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(profiles ProfileStore, ledger LedgerStore, registry *SessionRegistry, notifier Notifier) *FeedbackService {
	return &FeedbackService{
		profiles: profiles,
		ledger:   ledger,
		registry: registry,
		notifier: notifier,
	}
}

// Submit records feedback about a former partner. A like records one
// directed edge; a dislike blocks the pair in both directions. Returns
// whether the like completed a mutual affinity.
func (s *FeedbackService) Submit(ctx context.Context, raterID, ratedID int64, liked bool) (bool, error) {
	if raterID == ratedID {
		return false, ErrSelfTarget
	}
	if _, err := requireRegistered(ctx, s.profiles, raterID); err != nil {
		return false, err
	}

	if !liked {
		if err := s.ledger.AddBlock(ctx, raterID, ratedID); err != nil {
			return false, err
		}
		if err := s.ledger.AddBlock(ctx, ratedID, raterID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.ledger.AddLikeFeedback(ctx, raterID, ratedID); err != nil {
		return false, err
	}

	mutual, err := s.ledger.HasMutualAffinity(ctx, raterID, ratedID)
	if err != nil {
		return false, err
	}
	if mutual {
		log.Info().
			Int64("rater_id", raterID).
			Int64("rated_id", ratedID).
			Msg("Mutual affinity formed")
	}
	return mutual, nil
}

// ListAffinities returns the identities the user shares a mutual
// affinity with
func (s *FeedbackService) ListAffinities(ctx context.Context, userID int64) ([]int64, error) {
	if _, err := requireRegistered(ctx, s.profiles, userID); err != nil {
		return nil, err
	}
	return s.ledger.ListMutualAffinities(ctx, userID)
}

// Reopen opens a session directly with a mutual-affinity partner,
// bypassing the candidate selector. Fails unless both feedback edges
// exist and neither party has since blocked the other.
func (s *FeedbackService) Reopen(ctx context.Context, userID, partnerID int64) (*models.Session, error) {
	if userID == partnerID {
		return nil, ErrSelfTarget
	}
	if _, err := requireRegistered(ctx, s.profiles, userID); err != nil {
		return nil, err
	}
	if _, err := requireRegistered(ctx, s.profiles, partnerID); err != nil {
		return nil, err
	}

	mutual, err := s.ledger.HasMutualAffinity(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return nil, ErrNoAffinity
	}

	blocked, err := s.ledger.IsBlocked(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrNoAffinity
	}

	session, err := s.registry.Open(userID, partnerID)
	if err != nil {
		return nil, err
	}

	for _, id := range []int64{session.UserAID, session.UserBID} {
		payload := map[string]interface{}{"session_id": session.ID, "reopened": true}
		if err := s.notifier.NotifyUser(id, EventMatchConfirmed, payload); err != nil {
			log.Debug().Err(err).Int64("user_id", id).Msg("Failed to notify session reopen")
		}
	}
	return session, nil
}
