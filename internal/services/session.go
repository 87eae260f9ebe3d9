package services

import (
	"sync"
	"time"

	"anon-match-backend/internal/metrics"
	"anon-match-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionRegistry holds the currently paired users. Sessions are held
// only in memory and every mutation touches both members' entries inside
// one critical section, so a torn pairing can never be observed.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*models.Session
}

// NewSessionRegistry creates a new session registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*models.Session),
	}
}

// Open pairs two identities. It fails with ErrSelfTarget when both sides
// are the same identity and with ErrAlreadyInSession if either is already
// a member of a session.
func (r *SessionRegistry) Open(userAID, userBID int64) (*models.Session, error) {
	if userAID == userBID {
		return nil, ErrSelfTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[userAID]; exists {
		return nil, ErrAlreadyInSession
	}
	if _, exists := r.sessions[userBID]; exists {
		return nil, ErrAlreadyInSession
	}

	session := &models.Session{
		ID:       uuid.New().String(),
		UserAID:  userAID,
		UserBID:  userBID,
		OpenedAt: time.Now(),
	}
	r.sessions[userAID] = session
	r.sessions[userBID] = session

	log.Info().
		Str("session_id", session.ID).
		Int64("user_a_id", userAID).
		Int64("user_b_id", userBID).
		Msg("Session opened")
	metrics.SessionsOpened.Inc()

	return session, nil
}

// Close removes both members' entries and returns the closed session so
// the caller can notify the partner. Fails with ErrNotInSession when the
// user has no active partner.
func (r *SessionRegistry) Close(userID int64) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[userID]
	if !exists {
		return nil, ErrNotInSession
	}
	delete(r.sessions, session.UserAID)
	delete(r.sessions, session.UserBID)

	log.Info().
		Str("session_id", session.ID).
		Int64("closed_by", userID).
		Msg("Session closed")
	metrics.SessionsClosed.Inc()

	return session, nil
}

// Get returns the session the user is a member of, or ErrNotInSession.
func (r *SessionRegistry) Get(userID int64) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[userID]
	if !exists {
		return nil, ErrNotInSession
	}
	return session, nil
}

// InSession reports whether the user is currently paired
func (r *SessionRegistry) InSession(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sessions[userID]
	return exists
}
