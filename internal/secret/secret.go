package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Purpose names a secret slot. Each purpose maps to one backing reference
// (a Secrets Manager ARN in production).
type Purpose string

const (
	PurposeOTP Purpose = "otp"
	PurposeJWT Purpose = "jwt"
)

// ErrSecretUnavailable is returned when a secret cannot be obtained and
// nothing usable is cached. Callers must fail closed on it.
var ErrSecretUnavailable = errors.New("secret unavailable")

// devPlaceholders are values that may leak in from local tooling. They are
// treated as absent so a forgotten default can never sign or hash anything.
var devPlaceholders = map[string]bool{
	"dev_jwt_secret": true,
	"dev_otp_secret": true,
	"changeme":       true,
}

// Fetcher retrieves the raw secret payload for a backing reference.
type Fetcher interface {
	FetchSecret(ctx context.Context, ref string) (string, error)
}

// Provider is the capability handed to the orchestrators. The cache is the
// only implementation; tests inject fakes.
type Provider interface {
	Get(ctx context.Context, purpose Purpose) (string, error)
}

// Cache lazily loads and memoizes secrets for the life of the process.
// Values are write-once per purpose; there is no refresh or invalidation.
// Concurrent first loads are collapsed through a singleflight group.
type Cache struct {
	fetcher Fetcher
	refs    map[Purpose]string

	mu     sync.RWMutex
	loaded map[Purpose]string
	group  singleflight.Group
}

// NewCache builds a cache over the given fetcher. refs maps each purpose to
// its backing reference; seed optionally pre-populates purposes from the
// environment (placeholder values are discarded).
func NewCache(fetcher Fetcher, refs map[Purpose]string, seed map[Purpose]string) *Cache {
	c := &Cache{
		fetcher: fetcher,
		refs:    refs,
		loaded:  make(map[Purpose]string),
	}
	for purpose, value := range seed {
		if usable(value) {
			c.loaded[purpose] = value
		}
	}
	return c
}

// Get returns the secret for purpose, fetching and caching it on first use.
func (c *Cache) Get(ctx context.Context, purpose Purpose) (string, error) {
	c.mu.RLock()
	value, ok := c.loaded[purpose]
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	ref, ok := c.refs[purpose]
	if !ok || ref == "" {
		return "", fmt.Errorf("%w: no reference configured for %q", ErrSecretUnavailable, purpose)
	}

	v, err, _ := c.group.Do(string(purpose), func() (interface{}, error) {
		if c.fetcher == nil {
			return "", fmt.Errorf("%w: no secret store configured", ErrSecretUnavailable)
		}
		raw, err := c.fetcher.FetchSecret(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
		}
		value := extract(raw, purpose)
		if !usable(value) {
			return "", fmt.Errorf("%w: store returned an empty or placeholder value for %q", ErrSecretUnavailable, purpose)
		}
		c.mu.Lock()
		c.loaded[purpose] = value
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// extract handles the two payload shapes the secret store may hold: a raw
// string, or a JSON object keyed by purpose, e.g. {"jwt":"..."}.
func extract(raw string, purpose Purpose) string {
	var payload map[string]string
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		if v, ok := payload[string(purpose)]; ok && v != "" {
			return v
		}
	}
	return raw
}

func usable(value string) bool {
	return value != "" && !devPlaceholders[value]
}
