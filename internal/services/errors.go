package services

import "errors"

// Error kinds reported by the core. Handlers map them to HTTP status
// codes with errors.Is.
var (
	// ErrNotRegistered means the event references an identity with no profile.
	ErrNotRegistered = errors.New("identity is not registered")

	// ErrInvalidPreferenceRange means min age > max age, or an age outside
	// the configured bounds.
	ErrInvalidPreferenceRange = errors.New("invalid preference range")

	// ErrNoCandidate means the candidate pool is empty for the requester.
	ErrNoCandidate = errors.New("no candidate available")

	// ErrAlreadyInSession means an Open was attempted while a member is
	// already paired. This is an internal consistency fault, not a user error.
	ErrAlreadyInSession = errors.New("identity is already in a session")

	// ErrNotInSession means a stop or relay was attempted with no active partner.
	ErrNotInSession = errors.New("identity is not in a session")

	// ErrAlreadyRedeemed means the one-time promo code was already used by
	// this identity.
	ErrAlreadyRedeemed = errors.New("promo code already redeemed")

	// ErrDuplicateConfirmation means a purchase confirmation was replayed;
	// the grant is not reapplied.
	ErrDuplicateConfirmation = errors.New("duplicate purchase confirmation")

	// ErrDeliveryFailure means the relay could not deliver a payload; it is
	// reported to the sender only.
	ErrDeliveryFailure = errors.New("delivery failed")

	// ErrNoAffinity means a direct session open was attempted without a
	// mutual affinity between the pair.
	ErrNoAffinity = errors.New("no mutual affinity with partner")

	// ErrSelfTarget means an operation named the caller's own identity as
	// its target.
	ErrSelfTarget = errors.New("target is own identity")
)
