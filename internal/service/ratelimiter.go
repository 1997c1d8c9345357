package service

import (
	"time"

	"otp-auth-service/internal/config"
	"otp-auth-service/internal/models"
)

// RateLimiter holds the issuance and verification ceilings. It is pure
// policy over challenge state; all persistence lives in the ChallengeStore.
type RateLimiter struct {
	cooldown    time.Duration
	maxAttempts int
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		cooldown:    config.IssuanceCooldown,
		maxAttempts: config.MaxAttempts,
	}
}

// AllowIssuance reports whether a new code may be issued given the current
// challenge, if any. The subsequent Put is not atomic with this check; a
// lost race costs at most one extra issuance inside the cooldown window.
func (r *RateLimiter) AllowIssuance(current *models.Challenge, now time.Time) bool {
	if current == nil {
		return true
	}
	return current.Age(now) >= r.cooldown
}

// AllowVerification reports whether the challenge has attempts left.
// When it returns false the record should be deleted.
func (r *RateLimiter) AllowVerification(ch *models.Challenge) bool {
	return ch.Attempts < r.maxAttempts
}

// AttemptsExhausted reports whether a post-increment attempt count has
// reached the ceiling.
func (r *RateLimiter) AttemptsExhausted(attempts int) bool {
	return attempts >= r.maxAttempts
}

// AllowDailyQuota checks a post-increment counter value against the daily
// maximum. A maximum of zero or less disables the quota. Running after the
// atomic increment means the quota bounds successful verifications, not
// requests.
func (r *RateLimiter) AllowDailyQuota(newCount, maxPerDay int) bool {
	if maxPerDay <= 0 {
		return true
	}
	return newCount <= maxPerDay
}
