package models

import "time"

// Gender categories accepted by registration. DesiredAny is only valid as
// a desired-partner value.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	DesiredAny   = "any"
)

// Profile represents one registered user identity
type Profile struct {
	UserID           int64      `json:"user_id"`
	Gender           string     `json:"gender"`
	DesiredGender    string     `json:"desired_gender"`
	Age              int        `json:"age"`
	MinPartnerAge    int        `json:"min_partner_age"`
	MaxPartnerAge    int        `json:"max_partner_age"`
	DisplayName      string     `json:"display_name,omitempty"`
	VIP              bool       `json:"vip"`
	VIPExpiresAt     *time.Time `json:"vip_expires_at,omitempty"`
	BoostExpiresAt   *time.Time `json:"boost_expires_at,omitempty"`
	SuperlikeCredits int        `json:"superlike_credits"`
	PushToken        *string    `json:"push_token,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// VIPActive reports whether the profile holds VIP at the given instant.
// A nil expiry with the flag set means permanent VIP.
func (p *Profile) VIPActive(now time.Time) bool {
	if !p.VIP {
		return false
	}
	return p.VIPExpiresAt == nil || p.VIPExpiresAt.After(now)
}

// BoostActive reports whether the profile's boost is active at the given instant.
func (p *Profile) BoostActive(now time.Time) bool {
	return p.BoostExpiresAt != nil && p.BoostExpiresAt.After(now)
}

// Block represents a directed block edge between two identities
type Block struct {
	BlockerID int64     `json:"blocker_id"`
	BlockedID int64     `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeFeedback represents a directed "would talk again" edge recorded
// after a session ends
type LikeFeedback struct {
	RaterID   int64     `json:"rater_id"`
	RatedID   int64     `json:"rated_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents an ephemeral pairing of exactly two identities.
// Sessions live only in the registry, never in the database.
type Session struct {
	ID       string    `json:"id"`
	UserAID  int64     `json:"user_a_id"`
	UserBID  int64     `json:"user_b_id"`
	OpenedAt time.Time `json:"opened_at"`
}

// Partner returns the other member of the session.
func (s *Session) Partner(userID int64) int64 {
	if s.UserAID == userID {
		return s.UserBID
	}
	return s.UserAID
}

// PendingLike represents an unreciprocated expression of interest
type PendingLike struct {
	LikerID   int64     `json:"liker_id"`
	TargetID  int64     `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Payload kinds relayed between session members
const (
	PayloadText    = "text"
	PayloadImage   = "image"
	PayloadAudio   = "audio"
	PayloadFile    = "file"
	PayloadSticker = "sticker"
)

// Payload is one relayed message. Content carries the opaque body (or a
// transport reference for media); Caption is only meaningful for kinds
// that have a caption field.
type Payload struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Caption string `json:"caption,omitempty"`
}

// HasText reports whether the payload carries a text/caption field that a
// disclosure tag can be prefixed to.
func (p *Payload) HasText() bool {
	switch p.Kind {
	case PayloadText:
		return true
	case PayloadImage, PayloadAudio, PayloadFile:
		return p.Caption != ""
	default:
		return false
	}
}

// Product kinds accepted on purchase confirmations
const (
	ProductVIPForever = "vip_forever"
	ProductBoost      = "boost"
	ProductSuperlikes = "superlikes"
)

// PurchaseConfirmation represents a provider-issued confirmation of a
// completed purchase. ProviderRef de-duplicates redelivery.
type PurchaseConfirmation struct {
	UserID      int64  `json:"user_id"`
	ProductKind string `json:"product_kind"`
	ProviderRef string `json:"provider_ref"`
}
