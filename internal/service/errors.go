package service

import "errors"

// Failure taxonomy surfaced by the orchestrators. The handler maps these to
// HTTP statuses with errors.Is; anything unmatched degrades to a generic 500.
var (
	// ErrBadRequest: malformed or missing input, no state mutated.
	ErrBadRequest = errors.New("invalid request")

	// ErrUnauthorized covers wrong, expired, consumed, and unknown codes
	// alike, plus missing/invalid session tokens. One message for all of
	// them so callers cannot enumerate identities.
	ErrUnauthorized = errors.New("invalid or expired code")

	// ErrTooManyRequests: issuance cooldown hit.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrQuotaExceeded: the global daily verification quota is spent.
	ErrQuotaExceeded = errors.New("daily authorization limit reached")

	// ErrDeliveryFailed: the delivery provider rejected the send. The
	// stored challenge stays live.
	ErrDeliveryFailed = errors.New("delivery provider failure")
)
