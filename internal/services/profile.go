package services

import (
	"context"
	"errors"
	"fmt"

	"anon-match-backend/internal/config"
	"anon-match-backend/internal/models"
	"anon-match-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// ProfileService handles registration and profile reset
type ProfileService struct {
	profiles ProfileStore
	ledger   LedgerStore
	registry *SessionRegistry
	match    *MatchWorkflow
	notifier Notifier
	cfg      config.MatchingConfig
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, ledger LedgerStore, registry *SessionRegistry, match *MatchWorkflow, notifier Notifier, cfg config.MatchingConfig) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		ledger:   ledger,
		registry: registry,
		match:    match,
		notifier: notifier,
		cfg:      cfg,
	}
}

// RegisterRequest carries the attributes collected by the external
// onboarding dialogue
type RegisterRequest struct {
	Gender        string `json:"gender"`
	DesiredGender string `json:"desired_gender"`
	Age           int    `json:"age"`
	MinPartnerAge int    `json:"min_partner_age"`
	MaxPartnerAge int    `json:"max_partner_age"`
	DisplayName   string `json:"display_name,omitempty"`
}

// Register validates and upserts a profile. Re-registration replaces
// preferences and keeps entitlement state.
func (s *ProfileService) Register(ctx context.Context, userID int64, req *RegisterRequest) (*models.Profile, error) {
	if req.Gender != models.GenderMale && req.Gender != models.GenderFemale {
		return nil, fmt.Errorf("%w: unknown gender %q", ErrInvalidPreferenceRange, req.Gender)
	}
	switch req.DesiredGender {
	case models.GenderMale, models.GenderFemale, models.DesiredAny:
	default:
		return nil, fmt.Errorf("%w: unknown desired gender %q", ErrInvalidPreferenceRange, req.DesiredGender)
	}
	if req.Age < s.cfg.MinAge || req.Age > s.cfg.MaxAge {
		return nil, fmt.Errorf("%w: age %d outside %d-%d", ErrInvalidPreferenceRange, req.Age, s.cfg.MinAge, s.cfg.MaxAge)
	}
	if req.MinPartnerAge > req.MaxPartnerAge {
		return nil, fmt.Errorf("%w: min partner age %d > max %d", ErrInvalidPreferenceRange, req.MinPartnerAge, req.MaxPartnerAge)
	}

	profile := &models.Profile{
		UserID:        userID,
		Gender:        req.Gender,
		DesiredGender: req.DesiredGender,
		Age:           req.Age,
		MinPartnerAge: req.MinPartnerAge,
		MaxPartnerAge: req.MaxPartnerAge,
		DisplayName:   req.DisplayName,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", userID).Msg("Profile registered")
	return s.profiles.Get(ctx, userID)
}

// Get returns a profile, mapping a missing row to ErrNotRegistered
func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotRegistered, userID)
		}
		return nil, err
	}
	return profile, nil
}

// SetPushToken stores the device push token used for offline delivery
func (s *ProfileService) SetPushToken(ctx context.Context, userID int64, token string) error {
	if err := s.profiles.SetPushToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrNotRegistered, userID)
		}
		return err
	}
	return nil
}

// Reset deletes the profile and every block and feedback edge the
// identity participates in. A live session is closed with the partner
// notified, and pending likes are dropped. The one-time promo redemption
// record is deliberately left in place.
func (s *ProfileService) Reset(ctx context.Context, userID int64) error {
	if err := s.profiles.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrNotRegistered, userID)
		}
		return err
	}

	if err := s.ledger.DeleteFor(ctx, userID); err != nil {
		return err
	}

	s.match.DropPending(userID)

	if session, err := s.registry.Close(userID); err == nil {
		partner := session.Partner(userID)
		payload := map[string]interface{}{
			"session_id":      session.ID,
			"feedback_prompt": false,
		}
		if err := s.notifier.NotifyUser(partner, EventSessionClosed, payload); err != nil {
			log.Debug().Err(err).Int64("user_id", partner).Msg("Failed to notify partner of reset close")
		}
	}

	log.Info().Int64("user_id", userID).Msg("Profile reset")
	return nil
}
