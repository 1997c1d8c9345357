package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otp-auth-service/internal/secret"
)

func TestMintAndResolve(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionTokenService(testSecrets())

	token, err := svc.Mint(ctx, "user@example.com", time.Hour)
	require.NoError(t, err)

	sub, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", sub)
}

func TestResolveExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionTokenService(testSecrets())

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	now := base
	svc.now = func() time.Time { return now }

	token, err := svc.Mint(ctx, "user@example.com", time.Hour)
	require.NoError(t, err)

	now = base.Add(59 * time.Minute)
	_, err = svc.Resolve(ctx, token)
	require.NoError(t, err)

	now = base.Add(time.Hour + time.Minute)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionTokenService(testSecrets())

	token, err := svc.Mint(ctx, "user@example.com", time.Hour)
	require.NoError(t, err)

	// Flip one byte anywhere in the token.
	for _, pos := range []int{1, len(token) / 2, len(token) - 2} {
		raw := []byte(token)
		raw[pos] ^= 0x01
		_, err := svc.Resolve(ctx, string(raw))
		assert.ErrorIs(t, err, ErrUnauthorized, "altered byte at %d", pos)
	}

	_, err = svc.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMintFailsClosedWithoutSecret(t *testing.T) {
	svc := NewSessionTokenService(&fakeSecrets{err: secret.ErrSecretUnavailable})

	_, err := svc.Mint(context.Background(), "user@example.com", time.Hour)
	assert.ErrorIs(t, err, secret.ErrSecretUnavailable)
}

func TestResolveWrongKey(t *testing.T) {
	ctx := context.Background()
	minter := NewSessionTokenService(&fakeSecrets{values: map[secret.Purpose]string{
		secret.PurposeJWT: "key-one",
	}})
	resolver := NewSessionTokenService(&fakeSecrets{values: map[secret.Purpose]string{
		secret.PurposeJWT: "key-two",
	}})

	token, err := minter.Mint(ctx, "user@example.com", time.Hour)
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
