package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"otp-auth-service/internal/config"
	"otp-auth-service/internal/event"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
	"otp-auth-service/internal/otp"
	"otp-auth-service/internal/secret"
	"otp-auth-service/internal/util"
)

// Verifier orchestrates code verification: look up the challenge, enforce
// expiry and the attempt ceiling, compare digests in constant time, apply
// the daily quota, update the profile, and mint a session token.
type Verifier struct {
	store     ChallengeStore
	profiles  ProfileStore
	secrets   secret.Provider
	sessions  *SessionTokenService
	events    event.Publisher
	limiter   *RateLimiter
	maxPerDay int
	logger    *zap.Logger
	now       func() time.Time
}

func NewVerifier(
	store ChallengeStore,
	profiles ProfileStore,
	secrets secret.Provider,
	sessions *SessionTokenService,
	events event.Publisher,
	maxPerDay int,
	logger *zap.Logger,
) *Verifier {
	return &Verifier{
		store:     store,
		profiles:  profiles,
		secrets:   secrets,
		sessions:  sessions,
		events:    events,
		limiter:   NewRateLimiter(),
		maxPerDay: maxPerDay,
		logger:    logger,
		now:       time.Now,
	}
}

// VerifyCode checks a submitted code and, on success, returns a session
// token for the identity. Wrong, expired, consumed, and unknown codes all
// return ErrUnauthorized with no further distinction.
func (v *Verifier) VerifyCode(ctx context.Context, email, phone, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: code is required", ErrBadRequest)
	}
	id, err := identity.FromRequest(email, phone)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	now := v.now()

	ch, ok, err := v.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read challenge: %w", err)
	}
	if !ok {
		return "", ErrUnauthorized
	}

	if ch.Expired(now) {
		v.deleteChallenge(ctx, id)
		return "", ErrUnauthorized
	}

	// The storage TTL is only a backstop; the attempt ceiling has to hold
	// even if the record outlived a missed increment-delete.
	if !v.limiter.AllowVerification(ch) {
		v.deleteChallenge(ctx, id)
		return "", ErrUnauthorized
	}

	otpSecret, err := v.secrets.Get(ctx, secret.PurposeOTP)
	if err != nil {
		return "", err
	}

	if !otp.DigestEqual(otp.Digest(code, otpSecret), ch.Digest) {
		return "", v.recordFailedAttempt(ctx, id)
	}

	// Single-use: the record dies the moment the code matches.
	v.deleteChallenge(ctx, id)

	if v.maxPerDay > 0 {
		day := now.UTC().Format("2006-01-02")
		newCount, err := v.store.IncrementDailyCounter(ctx, day, now)
		if err != nil {
			// Deliberate fail-open: a broken counter must not lock every
			// user out. Quota enforcement erodes until the store recovers.
			v.logger.Error("daily counter update failed, allowing login",
				util.String("day", day),
				util.ErrorField(err),
			)
		} else if !v.limiter.AllowDailyQuota(newCount, v.maxPerDay) {
			return "", ErrQuotaExceeded
		}
	}

	if v.profiles != nil {
		if err := v.profiles.UpsertContact(ctx, id); err != nil {
			v.logger.Error("profile upsert failed on verification",
				util.Uint64("identity_hash", id.LogKey()),
				util.ErrorField(err),
			)
		}
		if err := v.profiles.RecordLogin(ctx, id, now); err != nil {
			v.logger.Error("login metadata update failed",
				util.Uint64("identity_hash", id.LogKey()),
				util.ErrorField(err),
			)
		}
	}

	token, err := v.sessions.Mint(ctx, id.Value, config.SessionTTL)
	if err != nil {
		return "", err
	}

	v.events.Publish(event.NewAuthEvent(models.EventLoginSucceeded, id, ""))
	v.logger.Info("login verified",
		util.String("kind", string(id.Kind)),
		util.Uint64("identity_hash", id.LogKey()),
	)
	return token, nil
}

// recordFailedAttempt bumps the attempt counter atomically and retires the
// challenge once the ceiling is reached.
func (v *Verifier) recordFailedAttempt(ctx context.Context, id identity.Identity) error {
	attempts, err := v.store.IncrementAttempts(ctx, id)
	if err != nil {
		v.logger.Error("attempt increment failed",
			util.Uint64("identity_hash", id.LogKey()),
			util.ErrorField(err),
		)
	} else if v.limiter.AttemptsExhausted(attempts) {
		v.deleteChallenge(ctx, id)
	}

	v.events.Publish(event.NewAuthEvent(models.EventOTPRejected, id, "digest mismatch"))
	return ErrUnauthorized
}

func (v *Verifier) deleteChallenge(ctx context.Context, id identity.Identity) {
	if err := v.store.Delete(ctx, id); err != nil {
		v.logger.Error("challenge delete failed",
			util.Uint64("identity_hash", id.LogKey()),
			util.ErrorField(err),
		)
	}
}
