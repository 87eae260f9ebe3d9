package services

import (
	"fmt"

	"anon-match-backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// PushSender delivers APNs alerts to users without a live WebSocket
// connection. Alerts carry only the event kind, never message content or
// sender identity.
type PushSender struct {
	client *apns2.Client
	topic  string
}

// NewPushSender creates a push sender from APNs configuration. Returns
// nil (push disabled) when no certificate is configured.
func NewPushSender(cfg config.APNSConfig) (*PushSender, error) {
	if cfg.CertFile == "" {
		return nil, nil
	}

	cert, err := certificate.FromP12File(cfg.CertFile, cfg.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert).Development()
	if cfg.Production {
		client = apns2.NewClient(cert).Production()
	}

	return &PushSender{client: client, topic: cfg.Topic}, nil
}

// Send delivers one alert for an event kind to a device token
func (p *PushSender) Send(deviceToken, eventKind string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload: payload.NewPayload().
			Alert(alertText(eventKind)).
			Custom("kind", eventKind),
	}

	res, err := p.client.Push(notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %s", res.Reason)
	}

	log.Debug().Str("event", eventKind).Msg("Push notification sent")
	return nil
}

// alertText maps event kinds to neutral alert copy. Message content is
// never put in a push.
func alertText(eventKind string) string {
	switch eventKind {
	case EventMatchConfirmed:
		return "You have a new match"
	case EventMessageRelayed:
		return "New message"
	case EventSessionClosed:
		return "Your chat has ended"
	default:
		return "You have a new notification"
	}
}
