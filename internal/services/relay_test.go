package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anon-match-backend/internal/config"
	"anon-match-backend/internal/models"
)

const testMaxPayloadBytes = 1024

func newRelayFixture(t *testing.T) (*Relay, *memStore, *SessionRegistry, *fakeNotifier) {
	t.Helper()
	store := newMemStore()
	registry := NewSessionRegistry()
	notifier := newFakeNotifier()
	operator := config.OperatorConfig{UserID: 900, Label: "operator"}
	relay := NewRelay(registry, store, notifier, operator, testMaxPayloadBytes)
	return relay, store, registry, notifier
}

func lastRelayed(t *testing.T, notifier *fakeNotifier, userID int64) *RelayedMessage {
	t.Helper()
	events := notifier.eventsFor(userID)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventMessageRelayed, last.Kind)
	msg, ok := last.Payload.(*RelayedMessage)
	require.True(t, ok)
	return msg
}

func TestRelaySend_Anonymous(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	session, err := registry.Open(1, 2)
	require.NoError(t, err)

	err = relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"})
	require.NoError(t, err)

	msg := lastRelayed(t, notifier, 2)
	assert.Equal(t, session.ID, msg.SessionID)
	assert.Equal(t, "hi", msg.Content)
	assert.Empty(t, msg.From, "non-VIP partner sees no sender identity")
}

func TestRelaySend_VIPPartnerSeesDisplayName(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	require.NoError(t, store.GrantVIP(ctx, 2, nil))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	require.NoError(t, relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"}))
	assert.Equal(t, "tester-1", lastRelayed(t, notifier, 2).From)

	// Disclosure is per receiver: the non-VIP side still gets anonymity.
	require.NoError(t, relay.Send(ctx, 2, &models.Payload{Kind: models.PayloadText, Content: "hello"}))
	assert.Empty(t, lastRelayed(t, notifier, 1).From)
}

func TestRelaySend_VIPFallbackName(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	sender := testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)
	sender.DisplayName = ""
	require.NoError(t, store.Upsert(ctx, sender))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	require.NoError(t, store.GrantVIP(ctx, 2, nil))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	require.NoError(t, relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"}))
	assert.Equal(t, "user 1", lastRelayed(t, notifier, 2).From)
}

func TestRelaySend_ExpiredVIPIsAnonymous(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, store.GrantVIP(ctx, 2, &expired))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	require.NoError(t, relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"}))
	assert.Empty(t, lastRelayed(t, notifier, 2).From)
}

func TestRelaySend_OperatorLabel(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(900, models.GenderMale, models.DesiredAny, 30, 18, 99)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 40)))
	_, err := registry.Open(900, 2)
	require.NoError(t, err)

	// Operator identity is disclosed regardless of the partner's VIP state.
	require.NoError(t, relay.Send(ctx, 900, &models.Payload{Kind: models.PayloadText, Content: "hi"}))
	assert.Equal(t, "operator", lastRelayed(t, notifier, 2).From)
}

func TestRelaySend_TagOnlyOnTextBearingPayloads(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	require.NoError(t, store.GrantVIP(ctx, 2, nil))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload *models.Payload
		tagged  bool
	}{
		{"text", &models.Payload{Kind: models.PayloadText, Content: "hi"}, true},
		{"captioned image", &models.Payload{Kind: models.PayloadImage, Content: "file-id", Caption: "look"}, true},
		{"bare image", &models.Payload{Kind: models.PayloadImage, Content: "file-id"}, false},
		{"captioned audio", &models.Payload{Kind: models.PayloadAudio, Content: "file-id", Caption: "listen"}, true},
		{"bare file", &models.Payload{Kind: models.PayloadFile, Content: "file-id"}, false},
		{"sticker never tagged", &models.Payload{Kind: models.PayloadSticker, Content: "file-id", Caption: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, relay.Send(ctx, 1, tt.payload))
			msg := lastRelayed(t, notifier, 2)
			if tt.tagged {
				assert.Equal(t, "tester-1", msg.From)
			} else {
				assert.Empty(t, msg.From)
			}
		})
	}
}

func TestRelaySend_NotInSession(t *testing.T) {
	ctx := context.Background()
	relay, store, _, _ := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))

	err := relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotInSession)
}

func TestRelaySend_OversizedPayload(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	// Content and caption count against the limit together.
	payload := &models.Payload{
		Kind:    models.PayloadImage,
		Content: strings.Repeat("a", testMaxPayloadBytes),
		Caption: "x",
	}
	err = relay.Send(ctx, 1, payload)
	assert.ErrorIs(t, err, ErrDeliveryFailure)
	assert.Empty(t, notifier.eventsFor(2))
}

func TestRelaySend_DeliveryErrorSwallowed(t *testing.T) {
	ctx := context.Background()
	relay, store, registry, notifier := newRelayFixture(t)

	require.NoError(t, store.Upsert(ctx, testProfile(1, models.GenderMale, models.GenderFemale, 25, 20, 30)))
	require.NoError(t, store.Upsert(ctx, testProfile(2, models.GenderFemale, models.GenderMale, 24, 20, 30)))
	_, err := registry.Open(1, 2)
	require.NoError(t, err)

	notifier.err = errors.New("connection gone")
	assert.NoError(t, relay.Send(ctx, 1, &models.Payload{Kind: models.PayloadText, Content: "hi"}))
}
