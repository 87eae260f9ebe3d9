package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"anon-match-backend/internal/models"
)

// Selector picks one candidate for a requester by mutual-constraint
// filtering and a two-tier uniform random choice. The RNG is injected so
// tests can fix the seed; production seeds it from crypto/rand.
type Selector struct {
	profiles ProfileStore
	rng      *rand.Rand
	now      func() time.Time
}

// NewSelector creates a new candidate selector
func NewSelector(profiles ProfileStore, rng *rand.Rand) *Selector {
	return &Selector{
		profiles: profiles,
		rng:      rng,
		now:      time.Now,
	}
}

// MutuallyEligible reports whether a candidate can be offered to the
// requester: the candidate must fall inside the requester's accepted
// gender and age range, and the requester must fall inside the
// candidate's. Block exclusion and self exclusion are handled by the
// candidate snapshot query.
func MutuallyEligible(requester, candidate *models.Profile) bool {
	return accepts(requester, candidate) && accepts(candidate, requester)
}

func accepts(seeker, other *models.Profile) bool {
	if seeker.DesiredGender != models.DesiredAny && seeker.DesiredGender != other.Gender {
		return false
	}
	return other.Age >= seeker.MinPartnerAge && other.Age <= seeker.MaxPartnerAge
}

// Pick returns one candidate for the requester, preferring profiles with
// an active boost. Returns ErrNoCandidate when the pool is empty and
// ErrNotRegistered when the requester has no profile.
func (s *Selector) Pick(ctx context.Context, requesterID int64) (*models.Profile, error) {
	requester, err := requireRegistered(ctx, s.profiles, requesterID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.profiles.ListCandidates(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate snapshot: %w", err)
	}

	now := s.now()
	var boosted, normal []*models.Profile
	for _, candidate := range snapshot {
		if !MutuallyEligible(requester, candidate) {
			continue
		}
		if candidate.BoostActive(now) {
			boosted = append(boosted, candidate)
		} else {
			normal = append(normal, candidate)
		}
	}

	tier := boosted
	if len(tier) == 0 {
		tier = normal
	}
	if len(tier) == 0 {
		return nil, ErrNoCandidate
	}
	return tier[s.rng.Intn(len(tier))], nil
}

// IsCandidate reports whether the candidate would currently be a valid
// selector result for the requester. Used by the match workflow to verify
// reciprocity.
func (s *Selector) IsCandidate(ctx context.Context, requesterID, candidateID int64) (bool, error) {
	requester, err := requireRegistered(ctx, s.profiles, requesterID)
	if err != nil {
		return false, err
	}

	snapshot, err := s.profiles.ListCandidates(ctx, requesterID)
	if err != nil {
		return false, fmt.Errorf("failed to load candidate snapshot: %w", err)
	}

	for _, candidate := range snapshot {
		if candidate.UserID == candidateID {
			return MutuallyEligible(requester, candidate), nil
		}
	}
	return false, nil
}
