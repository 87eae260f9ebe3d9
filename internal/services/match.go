package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"anon-match-backend/internal/metrics"
	"anon-match-backend/internal/models"

	"github.com/rs/zerolog/log"
)

type pairKey struct {
	likerID  int64
	targetID int64
}

// MatchResult is the outcome of a like/dislike event: either a confirmed
// match with an open session, or the next candidate to present.
type MatchResult struct {
	Matched   bool            `json:"matched"`
	Session   *models.Session `json:"session,omitempty"`
	Candidate *models.Profile `json:"candidate,omitempty"`
}

// MatchWorkflow turns two independent like decisions into a confirmed
// match. Pending likes are ephemeral process state; the workflow mutex is
// held across the reciprocity check and the session open so exactly one
// of two concurrent mutual-like handlers performs the open.
type MatchWorkflow struct {
	mu       sync.Mutex
	pending  map[pairKey]time.Time
	profiles ProfileStore
	ledger   LedgerStore
	selector *Selector
	registry *SessionRegistry
	notifier Notifier
}

// NewMatchWorkflow creates a new match workflow
func NewMatchWorkflow(profiles ProfileStore, ledger LedgerStore, selector *Selector, registry *SessionRegistry, notifier Notifier) *MatchWorkflow {
	return &MatchWorkflow{
		pending:  make(map[pairKey]time.Time),
		profiles: profiles,
		ledger:   ledger,
		selector: selector,
		registry: registry,
		notifier: notifier,
	}
}

// RequestCandidate picks and presents the next candidate for a user
func (m *MatchWorkflow) RequestCandidate(ctx context.Context, userID int64) (*models.Profile, error) {
	candidate, err := m.selector.Pick(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.presentCandidate(userID, candidate)
	return candidate, nil
}

// Like records a pending like from liker toward target and checks
// reciprocity. A reciprocal pair of likes opens exactly one session; a
// one-sided like leaves the proposal pending and offers the next
// candidate.
func (m *MatchWorkflow) Like(ctx context.Context, likerID, targetID int64) (*MatchResult, error) {
	if likerID == targetID {
		return nil, ErrSelfTarget
	}
	if _, err := requireRegistered(ctx, m.profiles, likerID); err != nil {
		return nil, err
	}

	// Reciprocity requires the liker to still be a valid selector result
	// for the target. Checked before the critical section: it only reads
	// durable state.
	eligible, err := m.selector.IsCandidate(ctx, targetID, likerID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()

	// A concurrent handler for the reverse like may have already
	// confirmed the pair; observe that state and simply notify.
	if session, err := m.registry.Get(likerID); err == nil && session.Partner(likerID) == targetID {
		m.mu.Unlock()
		m.notifyMatch(session)
		return &MatchResult{Matched: true, Session: session}, nil
	}

	m.pending[pairKey{likerID, targetID}] = time.Now()
	_, reciprocal := m.pending[pairKey{targetID, likerID}]

	if reciprocal && eligible {
		delete(m.pending, pairKey{likerID, targetID})
		delete(m.pending, pairKey{targetID, likerID})

		session, err := m.openConfirmed(likerID, targetID)
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
		metrics.MatchesConfirmed.Inc()
		m.notifyMatch(session)
		return &MatchResult{Matched: true, Session: session}, nil
	}

	m.mu.Unlock()

	// Not reciprocal: the proposal stays pending and the flow moves on to
	// the next candidate. An empty pool is not an error here.
	candidate, err := m.selector.Pick(ctx, likerID)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			return &MatchResult{}, nil
		}
		return nil, err
	}
	m.presentCandidate(likerID, candidate)
	return &MatchResult{Candidate: candidate}, nil
}

// Dislike records a permanent block from the user toward the target and
// offers the next candidate.
func (m *MatchWorkflow) Dislike(ctx context.Context, userID, targetID int64) (*MatchResult, error) {
	if userID == targetID {
		return nil, ErrSelfTarget
	}
	if _, err := requireRegistered(ctx, m.profiles, userID); err != nil {
		return nil, err
	}

	if err := m.ledger.AddBlock(ctx, userID, targetID); err != nil {
		return nil, err
	}

	// A block between the pair makes any dangling proposal moot.
	m.mu.Lock()
	delete(m.pending, pairKey{userID, targetID})
	delete(m.pending, pairKey{targetID, userID})
	m.mu.Unlock()

	candidate, err := m.selector.Pick(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			return &MatchResult{}, nil
		}
		return nil, err
	}
	m.presentCandidate(userID, candidate)
	return &MatchResult{Candidate: candidate}, nil
}

// DropPending removes every pending like from or toward the identity.
// Called on profile reset.
func (m *MatchWorkflow) DropPending(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.pending {
		if key.likerID == userID || key.targetID == userID {
			delete(m.pending, key)
		}
	}
}

// HasPending reports whether a proposal from liker toward target exists
func (m *MatchWorkflow) HasPending(likerID, targetID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.pending[pairKey{likerID, targetID}]
	return exists
}

// openConfirmed opens the session for a confirmed pair. An
// AlreadyInSession failure here is a consistency fault: it is logged,
// resolved by force-closing the stale membership, and the open is retried
// once.
func (m *MatchWorkflow) openConfirmed(userAID, userBID int64) (*models.Session, error) {
	session, err := m.registry.Open(userAID, userBID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrAlreadyInSession) {
		return nil, err
	}

	log.Error().
		Int64("user_a_id", userAID).
		Int64("user_b_id", userBID).
		Msg("Confirmed pair had a stale session membership, forcing close")

	for _, id := range []int64{userAID, userBID} {
		stale, err := m.registry.Close(id)
		if err != nil {
			continue
		}
		m.notifySessionClosed(stale, id)
	}
	return m.registry.Open(userAID, userBID)
}

func (m *MatchWorkflow) presentCandidate(userID int64, candidate *models.Profile) {
	payload := map[string]interface{}{
		"user_id": candidate.UserID,
		"gender":  candidate.Gender,
		"age":     candidate.Age,
	}
	if err := m.notifier.NotifyUser(userID, EventCandidatePresented, payload); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to present candidate")
	}
}

func (m *MatchWorkflow) notifyMatch(session *models.Session) {
	for _, id := range []int64{session.UserAID, session.UserBID} {
		payload := map[string]interface{}{"session_id": session.ID}
		if err := m.notifier.NotifyUser(id, EventMatchConfirmed, payload); err != nil {
			log.Debug().Err(err).Int64("user_id", id).Msg("Failed to notify match")
		}
	}
}

func (m *MatchWorkflow) notifySessionClosed(session *models.Session, closedBy int64) {
	partner := session.Partner(closedBy)
	payload := map[string]interface{}{
		"session_id":      session.ID,
		"feedback_prompt": true,
	}
	if err := m.notifier.NotifyUser(partner, EventSessionClosed, payload); err != nil {
		log.Debug().Err(err).Int64("user_id", partner).Msg("Failed to notify session close")
	}
}
