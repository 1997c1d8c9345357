package service

import (
	"context"
	"time"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
)

// ChallengeStore is the durable home of OTP challenges and the global daily
// counter. Both increment operations must be atomic under concurrent
// callers; everything else may race within the bounds documented on the
// orchestrators.
type ChallengeStore interface {
	// Put creates or unconditionally overwrites the challenge for an
	// identity with attempts=0 and expiry derived from now.
	Put(ctx context.Context, id identity.Identity, digest string, now time.Time) error
	Get(ctx context.Context, id identity.Identity) (*models.Challenge, bool, error)
	// IncrementAttempts atomically bumps the attempt count and returns the
	// new value.
	IncrementAttempts(ctx context.Context, id identity.Identity) (int, error)
	Delete(ctx context.Context, id identity.Identity) error
	// IncrementDailyCounter atomically increments the counter for a UTC day
	// (YYYY-MM-DD) and returns the new value.
	IncrementDailyCounter(ctx context.Context, day string, now time.Time) (int, error)
}

// ProfileStore is the identity-store collaborator. Both operations are
// best-effort from the orchestrators' point of view.
type ProfileStore interface {
	// UpsertContact ensures a minimal profile exists, setting the contact
	// field only if absent.
	UpsertContact(ctx context.Context, id identity.Identity) error
	// RecordLogin stamps last login time and increments the login count.
	RecordLogin(ctx context.Context, id identity.Identity, now time.Time) error
}
