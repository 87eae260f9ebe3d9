package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"anon-match-backend/internal/models"
	"anon-match-backend/internal/repository"
)

// -------- test fakes --------

type edge struct {
	from int64
	to   int64
}

// memStore is an in-memory implementation of ProfileStore, LedgerStore
// and EntitlementStore with the same semantics as the pgx repositories.
type memStore struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
	blocks   map[edge]bool
	likes    map[edge]bool
	redeemed map[int64]bool
	confirms map[string]bool

	// grantErr fails the next purchase confirmation before anything is
	// recorded, like a rolled-back transaction.
	grantErr error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[int64]*models.Profile),
		blocks:   make(map[edge]bool),
		likes:    make(map[edge]bool),
		redeemed: make(map[int64]bool),
		confirms: make(map[string]bool),
	}
}

func (s *memStore) Upsert(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.UserID]; ok {
		// Preference fields replaced, entitlement columns preserved.
		updated := *existing
		updated.Gender = p.Gender
		updated.DesiredGender = p.DesiredGender
		updated.Age = p.Age
		updated.MinPartnerAge = p.MinPartnerAge
		updated.MaxPartnerAge = p.MaxPartnerAge
		updated.DisplayName = p.DisplayName
		s.profiles[p.UserID] = &updated
		return nil
	}
	stored := *p
	stored.CreatedAt = time.Now()
	s.profiles[p.UserID] = &stored
	return nil
}

func (s *memStore) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}

func (s *memStore) SetPushToken(ctx context.Context, userID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.PushToken = &token
	return nil
}

func (s *memStore) ListCandidates(ctx context.Context, requesterID int64) ([]*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Profile
	for id, p := range s.profiles {
		if id == requesterID {
			continue
		}
		if s.blocks[edge{requesterID, id}] || s.blocks[edge{id, requesterID}] {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	// Stable order so seeded selector tests are repeatable.
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memStore) AddBlock(ctx context.Context, blockerID, blockedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[edge{blockerID, blockedID}] = true
	return nil
}

func (s *memStore) IsBlocked(ctx context.Context, userAID, userBID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[edge{userAID, userBID}] || s.blocks[edge{userBID, userAID}], nil
}

func (s *memStore) AddLikeFeedback(ctx context.Context, raterID, ratedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[edge{raterID, ratedID}] = true
	return nil
}

func (s *memStore) HasMutualAffinity(ctx context.Context, userAID, userBID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[edge{userAID, userBID}] && s.likes[edge{userBID, userAID}], nil
}

func (s *memStore) ListMutualAffinities(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for e := range s.likes {
		if e.from == userID && s.likes[edge{e.to, userID}] {
			out = append(out, e.to)
		}
	}
	return out, nil
}

func (s *memStore) DeleteFor(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := range s.blocks {
		if e.from == userID || e.to == userID {
			delete(s.blocks, e)
		}
	}
	for e := range s.likes {
		if e.from == userID || e.to == userID {
			delete(s.likes, e)
		}
	}
	return nil
}

func (s *memStore) GrantVIP(ctx context.Context, userID int64, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.VIP = true
	p.VIPExpiresAt = expiresAt
	return nil
}

func (s *memStore) GrantBoost(ctx context.Context, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.BoostExpiresAt = &expiresAt
	return nil
}

func (s *memStore) AddSuperlikeCredits(ctx context.Context, userID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.SuperlikeCredits += n
	return nil
}

func (s *memStore) RedeemCode(ctx context.Context, userID int64, vipUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redeemed[userID] {
		return false, nil
	}
	s.redeemed[userID] = true
	if p, ok := s.profiles[userID]; ok {
		p.VIP = true
		until := vipUntil
		p.VIPExpiresAt = &until
	}
	return true, nil
}

// confirmPurchase mirrors the repository's transactional semantics: the
// reference is only recorded when the grant succeeds.
func (s *memStore) confirmPurchase(userID int64, providerRef string, grant func(*models.Profile)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirms[providerRef] {
		return false, nil
	}
	if s.grantErr != nil {
		err := s.grantErr
		s.grantErr = nil
		return false, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	s.confirms[providerRef] = true
	grant(p)
	return true, nil
}

func (s *memStore) ConfirmVIPForever(ctx context.Context, userID int64, providerRef string) (bool, error) {
	return s.confirmPurchase(userID, providerRef, func(p *models.Profile) {
		p.VIP = true
		p.VIPExpiresAt = nil
	})
}

func (s *memStore) ConfirmBoost(ctx context.Context, userID int64, providerRef string, until time.Time) (bool, error) {
	return s.confirmPurchase(userID, providerRef, func(p *models.Profile) {
		expiry := until
		p.BoostExpiresAt = &expiry
	})
}

func (s *memStore) ConfirmSuperlikes(ctx context.Context, userID int64, providerRef string, n int) (bool, error) {
	return s.confirmPurchase(userID, providerRef, func(p *models.Profile) {
		p.SuperlikeCredits += n
	})
}

// fakeNotifier records delivered events per user
type fakeNotifier struct {
	mu     sync.Mutex
	events map[int64][]Event
	err    error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(map[int64][]Event)}
}

func (n *fakeNotifier) NotifyUser(userID int64, eventKind string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events[userID] = append(n.events[userID], Event{Kind: eventKind, Payload: payload})
	return nil
}

func (n *fakeNotifier) eventsFor(userID int64) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events[userID]...)
}

func (n *fakeNotifier) lastKind(userID int64) string {
	events := n.eventsFor(userID)
	if len(events) == 0 {
		return ""
	}
	return events[len(events)-1].Kind
}

// testProfile builds a registered profile with sane defaults
func testProfile(userID int64, gender, desired string, age, minAge, maxAge int) *models.Profile {
	return &models.Profile{
		UserID:        userID,
		Gender:        gender,
		DesiredGender: desired,
		Age:           age,
		MinPartnerAge: minAge,
		MaxPartnerAge: maxAge,
		DisplayName:   fmt.Sprintf("tester-%d", userID),
	}
}
