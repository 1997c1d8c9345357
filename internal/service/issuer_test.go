package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"otp-auth-service/internal/event"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/repository/memory"
	"otp-auth-service/internal/secret"
)

type fakeSecrets struct {
	values map[secret.Purpose]string
	err    error
}

func (f *fakeSecrets) Get(_ context.Context, purpose secret.Purpose) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[purpose]
	if !ok {
		return "", secret.ErrSecretUnavailable
	}
	return v, nil
}

type fakeSender struct {
	deliveries []struct {
		id   identity.Identity
		code string
	}
	err error
}

func (f *fakeSender) Deliver(_ context.Context, id identity.Identity, code string) error {
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, struct {
		id   identity.Identity
		code string
	}{id, code})
	return nil
}

func testSecrets() *fakeSecrets {
	return &fakeSecrets{values: map[secret.Purpose]string{
		secret.PurposeOTP: "otp-signing-secret",
		secret.PurposeJWT: "jwt-signing-secret",
	}}
}

func newTestIssuer(store ChallengeStore, profiles ProfileStore, sender *fakeSender) *Issuer {
	return NewIssuer(store, profiles, testSecrets(), sender, event.Noop{}, zap.NewNop())
}

func TestRequestCodeStoresChallenge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChallengeStore()
	sender := &fakeSender{}
	issuer := newTestIssuer(store, memory.NewProfileStore(), sender)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }

	require.NoError(t, issuer.RequestCode(ctx, "  USER@Example.com ", ""))

	id := identity.NewEmail("user@example.com")
	ch, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, ch.Attempts)
	assert.Equal(t, base.Unix(), ch.CreatedAt)
	assert.Equal(t, base.Unix()+300, ch.ExpiresAt)

	require.Len(t, sender.deliveries, 1)
	assert.Equal(t, id, sender.deliveries[0].id)
	assert.Len(t, sender.deliveries[0].code, 6)
}

func TestRequestCodeValidation(t *testing.T) {
	issuer := newTestIssuer(memory.NewChallengeStore(), memory.NewProfileStore(), &fakeSender{})

	assert.ErrorIs(t, issuer.RequestCode(context.Background(), "", ""), ErrBadRequest)
	assert.ErrorIs(t, issuer.RequestCode(context.Background(), "a@b.com", "+15550001111"), ErrBadRequest)
}

func TestRequestCodeCooldown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChallengeStore()
	sender := &fakeSender{}
	issuer := newTestIssuer(store, memory.NewProfileStore(), sender)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	now := base
	issuer.now = func() time.Time { return now }

	require.NoError(t, issuer.RequestCode(ctx, "user@example.com", ""))
	id := identity.NewEmail("user@example.com")
	first, _, err := store.Get(ctx, id)
	require.NoError(t, err)

	now = base.Add(30 * time.Second)
	assert.ErrorIs(t, issuer.RequestCode(ctx, "user@example.com", ""), ErrTooManyRequests)

	// First challenge is untouched by the rejected issuance.
	ch, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Digest, ch.Digest)
	assert.Len(t, sender.deliveries, 1)

	// Past the cooldown a new code overwrites the old one.
	now = base.Add(61 * time.Second)
	require.NoError(t, issuer.RequestCode(ctx, "user@example.com", ""))
	ch, _, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest, ch.Digest)
}

func TestRequestCodeFailsClosedWithoutSecret(t *testing.T) {
	store := memory.NewChallengeStore()
	issuer := NewIssuer(store, nil, &fakeSecrets{err: secret.ErrSecretUnavailable},
		&fakeSender{}, event.Noop{}, zap.NewNop())

	err := issuer.RequestCode(context.Background(), "user@example.com", "")
	assert.ErrorIs(t, err, secret.ErrSecretUnavailable)

	// Nothing was stored.
	_, ok, getErr := store.Get(context.Background(), identity.NewEmail("user@example.com"))
	require.NoError(t, getErr)
	assert.False(t, ok)
}

func TestRequestCodeDeliveryFailureLeavesChallenge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChallengeStore()
	issuer := newTestIssuer(store, memory.NewProfileStore(),
		&fakeSender{err: errors.New("provider down")})

	err := issuer.RequestCode(ctx, "", "+1 (555) 123-4567")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	_, ok, getErr := store.Get(ctx, identity.NewPhone("+15551234567"))
	require.NoError(t, getErr)
	assert.True(t, ok, "challenge stays live after delivery failure")
}

func TestRequestCodeUpsertsEmailProfile(t *testing.T) {
	profiles := memory.NewProfileStore()
	issuer := newTestIssuer(memory.NewChallengeStore(), profiles, &fakeSender{})

	require.NoError(t, issuer.RequestCode(context.Background(), "user@example.com", ""))

	p, ok := profiles.Profile(identity.NewEmail("user@example.com"))
	require.True(t, ok)
	assert.Equal(t, "user@example.com", p.Email)
	assert.EqualValues(t, 0, p.LoginCount)
}
