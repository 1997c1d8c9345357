package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"otp-auth-service/internal/delivery"
	"otp-auth-service/internal/event"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
	"otp-auth-service/internal/otp"
	"otp-auth-service/internal/secret"
	"otp-auth-service/internal/util"
)

// Issuer orchestrates one-time code issuance: normalize the identity, apply
// the cooldown, generate and digest a code, store the challenge, deliver
// the plaintext through the matching provider.
type Issuer struct {
	store    ChallengeStore
	profiles ProfileStore
	secrets  secret.Provider
	sender   delivery.Sender
	events   event.Publisher
	limiter  *RateLimiter
	logger   *zap.Logger
	now      func() time.Time
}

func NewIssuer(
	store ChallengeStore,
	profiles ProfileStore,
	secrets secret.Provider,
	sender delivery.Sender,
	events event.Publisher,
	logger *zap.Logger,
) *Issuer {
	return &Issuer{
		store:    store,
		profiles: profiles,
		secrets:  secrets,
		sender:   sender,
		events:   events,
		limiter:  NewRateLimiter(),
		logger:   logger,
		now:      time.Now,
	}
}

// RequestCode issues a fresh code for the identity in the request. Exactly
// one of email or phone must be set.
func (i *Issuer) RequestCode(ctx context.Context, email, phone string) error {
	id, err := identity.FromRequest(email, phone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	now := i.now()

	// Cooldown is a best-effort read; a store hiccup here must not block
	// issuance, the attempt ceiling still protects verification.
	current, ok, err := i.store.Get(ctx, id)
	if err != nil {
		i.logger.Error("cooldown check failed, proceeding",
			util.Uint64("identity_hash", id.LogKey()),
			util.ErrorField(err),
		)
	} else if ok && !i.limiter.AllowIssuance(current, now) {
		return fmt.Errorf("%w: issuance cooldown active", ErrTooManyRequests)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	// No secret means no digest to store; issuance fails closed rather
	// than persisting anything derived from a weaker key.
	otpSecret, err := i.secrets.Get(ctx, secret.PurposeOTP)
	if err != nil {
		return err
	}

	if err := i.store.Put(ctx, id, otp.Digest(code, otpSecret), now); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	// Profile upsert is not required for issuance to succeed.
	if id.Kind == identity.KindEmail && i.profiles != nil {
		if err := i.profiles.UpsertContact(ctx, id); err != nil {
			i.logger.Error("profile upsert failed on issuance",
				util.Uint64("identity_hash", id.LogKey()),
				util.ErrorField(err),
			)
		}
	}

	if err := i.sender.Deliver(ctx, id, code); err != nil {
		// The stored challenge stays live; the caller may re-issue after
		// the cooldown.
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	i.events.Publish(event.NewAuthEvent(models.EventOTPIssued, id, ""))
	i.logger.Info("login code issued",
		util.String("kind", string(id.Kind)),
		util.Uint64("identity_hash", id.LogKey()),
		util.String("code", otp.Mask(code)),
	)
	return nil
}
