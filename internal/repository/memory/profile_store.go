package memory

import (
	"context"
	"sync"
	"time"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
)

// ProfileStore is an in-process identity-store collaborator for tests and
// store-less development runs.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*models.Profile)}
}

func (s *ProfileStore) UpsertContact(_ context.Context, id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(id)
	return nil
}

func (s *ProfileStore) RecordLogin(_ context.Context, id identity.Identity, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ensure(id)
	p.LastLoginAt = now
	p.LoginCount++
	return nil
}

// Profile returns a copy of the stored profile, for test assertions.
func (s *ProfileStore) Profile(id identity.Identity) (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id.Value]
	if !ok {
		return models.Profile{}, false
	}
	return *p, true
}

func (s *ProfileStore) ensure(id identity.Identity) *models.Profile {
	p, ok := s.profiles[id.Value]
	if !ok {
		p = &models.Profile{
			Identifier: id.Value,
			Kind:       string(id.Kind),
			CreatedAt:  time.Now(),
		}
		// Contact fields are set-if-absent only.
		if id.Kind == identity.KindEmail {
			p.Email = id.Value
		} else {
			p.Phone = id.Value
		}
		s.profiles[id.Value] = p
	}
	return p
}
