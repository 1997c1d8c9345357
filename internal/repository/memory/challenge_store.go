package memory

import (
	"context"
	"sync"
	"time"

	"otp-auth-service/internal/config"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
)

// ChallengeStore is an in-process challenge store with the same atomicity
// guarantees as the Redis one, backed by a mutex instead of server-side
// increments. Used by tests and store-less development runs.
type ChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*models.Challenge
	counters   map[string]int
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		challenges: make(map[string]*models.Challenge),
		counters:   make(map[string]int),
	}
}

func (s *ChallengeStore) Put(_ context.Context, id identity.Identity, digest string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := now.Unix()
	s.challenges[id.Key()] = &models.Challenge{
		Digest:    digest,
		Attempts:  0,
		CreatedAt: createdAt,
		ExpiresAt: createdAt + int64(config.OTPTTL.Seconds()),
	}
	return nil
}

func (s *ChallengeStore) Get(_ context.Context, id identity.Identity) (*models.Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id.Key()]
	if !ok {
		return nil, false, nil
	}
	copied := *ch
	return &copied, true, nil
}

func (s *ChallengeStore) IncrementAttempts(_ context.Context, id identity.Identity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id.Key()]
	if !ok {
		// Mirrors HINCRBY on a missing key: the field starts at zero.
		ch = &models.Challenge{}
		s.challenges[id.Key()] = ch
	}
	ch.Attempts++
	return ch.Attempts, nil
}

func (s *ChallengeStore) Delete(_ context.Context, id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, id.Key())
	return nil
}

func (s *ChallengeStore) IncrementDailyCounter(_ context.Context, day string, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[day]++
	return s.counters[day], nil
}
