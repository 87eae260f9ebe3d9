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

// Relay delivers payloads between session members, applying the
// identity-disclosure policy at delivery time.
type Relay struct {
	registry        *SessionRegistry
	profiles        ProfileStore
	notifier        Notifier
	operator        config.OperatorConfig
	maxPayloadBytes int
	now             func() time.Time
}

// NewRelay creates a new relay
func NewRelay(registry *SessionRegistry, profiles ProfileStore, notifier Notifier, operator config.OperatorConfig, maxPayloadBytes int) *Relay {
	return &Relay{
		registry:        registry,
		profiles:        profiles,
		notifier:        notifier,
		operator:        operator,
		maxPayloadBytes: maxPayloadBytes,
		now:             time.Now,
	}
}

// RelayedMessage is what the partner receives. From is empty for fully
// anonymous delivery.
type RelayedMessage struct {
	SessionID string `json:"session_id"`
	From      string `json:"from,omitempty"`
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Caption   string `json:"caption,omitempty"`
}

// Send delivers one payload from the sender to their session partner.
// Oversized payloads fail with ErrDeliveryFailure reported to the sender;
// transient delivery errors are swallowed so failure diagnostics stay
// anonymous to the other party.
func (r *Relay) Send(ctx context.Context, senderID int64, payload *models.Payload) error {
	session, err := r.registry.Get(senderID)
	if err != nil {
		return err
	}
	partnerID := session.Partner(senderID)

	if len(payload.Content)+len(payload.Caption) > r.maxPayloadBytes {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrDeliveryFailure, r.maxPayloadBytes)
	}

	msg := &RelayedMessage{
		SessionID: session.ID,
		Kind:      payload.Kind,
		Content:   payload.Content,
		Caption:   payload.Caption,
	}

	tag, err := r.disclosureTag(ctx, senderID, partnerID)
	if err != nil {
		return err
	}
	if tag != "" && payload.HasText() {
		msg.From = tag
	}

	if err := r.notifier.NotifyUser(partnerID, EventMessageRelayed, msg); err != nil {
		// Transient delivery errors are not surfaced to either side.
		log.Warn().
			Err(err).
			Int64("sender_id", senderID).
			Int64("partner_id", partnerID).
			Msg("Failed to deliver relayed message")
		return nil
	}
	metrics.MessagesRelayed.Inc()
	return nil
}

// disclosureTag returns the sender attribution shown to the partner, or
// empty for full anonymity.
func (r *Relay) disclosureTag(ctx context.Context, senderID, partnerID int64) (string, error) {
	if r.operator.UserID != 0 && senderID == r.operator.UserID {
		return r.operator.Label, nil
	}

	partner, err := requireRegistered(ctx, r.profiles, partnerID)
	if err != nil {
		return "", err
	}
	if !partner.VIPActive(r.now()) {
		return "", nil
	}

	sender, err := requireRegistered(ctx, r.profiles, senderID)
	if err != nil {
		return "", err
	}
	if sender.DisplayName != "" {
		return sender.DisplayName, nil
	}
	return fmt.Sprintf("user %d", senderID), nil
}
