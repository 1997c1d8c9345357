package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"otp-auth-service/internal/client"
	"otp-auth-service/internal/config"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
	"otp-auth-service/internal/util"
)

const (
	challengePrefix = "otp:"
	counterPrefix   = "authcount:"

	// counterTTL keeps daily counter keys from accumulating; the key for a
	// new day is distinct, so the counter only needs to outlive its day's
	// last write by a housekeeping margin.
	counterTTL = time.Hour
)

// ChallengeStore keeps OTP challenges and the global daily counter in Redis.
// Challenges live in a hash per identity with a TTL backstop; attempt and
// counter increments ride on Redis's native atomic increments.
type ChallengeStore struct {
	client *client.RedisClient
}

func NewChallengeStore(client *client.RedisClient) *ChallengeStore {
	return &ChallengeStore{client: client}
}

// Put creates or overwrites the challenge for an identity. Overwrite is
// unconditional: a new issuance always invalidates the outstanding code.
func (s *ChallengeStore) Put(ctx context.Context, id identity.Identity, digest string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := challengePrefix + id.Key()
	createdAt := now.Unix()
	fields := map[string]interface{}{
		"digest":     digest,
		"attempts":   0,
		"created_at": createdAt,
		"expires_at": createdAt + int64(config.OTPTTL.Seconds()),
	}

	if err := s.client.HSetWithExpire(ctx, key, fields, config.OTPTTL); err != nil {
		util.Error("failed to store challenge",
			zap.Uint64("identity_hash", id.LogKey()),
			zap.Error(err))
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	util.Debug("challenge stored",
		zap.Uint64("identity_hash", id.LogKey()),
		zap.Duration("ttl", config.OTPTTL))
	return nil
}

// Get returns the live challenge for an identity, if any.
func (s *ChallengeStore) Get(ctx context.Context, id identity.Identity) (*models.Challenge, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, challengePrefix+id.Key())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	ch := &models.Challenge{Digest: fields["digest"]}
	ch.Attempts, _ = strconv.Atoi(fields["attempts"])
	ch.CreatedAt, _ = strconv.ParseInt(fields["created_at"], 10, 64)
	ch.ExpiresAt, _ = strconv.ParseInt(fields["expires_at"], 10, 64)
	return ch, true, nil
}

// IncrementAttempts atomically bumps the attempt counter for an identity's
// challenge and returns the new count. HINCRBY is atomic server-side, so
// concurrent verifications cannot lose an increment.
func (s *ChallengeStore) IncrementAttempts(ctx context.Context, id identity.Identity) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.client.HIncrBy(ctx, challengePrefix+id.Key(), "attempts", 1)
	if err != nil {
		util.Error("failed to increment attempts",
			zap.Uint64("identity_hash", id.LogKey()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return int(count), nil
}

// Delete removes the challenge for an identity.
func (s *ChallengeStore) Delete(ctx context.Context, id identity.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, challengePrefix+id.Key()); err != nil {
		util.Error("failed to delete challenge",
			zap.Uint64("identity_hash", id.LogKey()),
			zap.Error(err))
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// IncrementDailyCounter atomically increments the verification counter for a
// UTC day (key form authcount:YYYY-MM-DD) and returns the new value,
// refreshing the housekeeping expiry on every write.
func (s *ChallengeStore) IncrementDailyCounter(ctx context.Context, day string, _ time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.client.IncrWithExpire(ctx, counterPrefix+day, counterTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to increment daily counter: %w", err)
	}
	return int(count), nil
}
