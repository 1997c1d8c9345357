package delivery

import (
	"context"

	"otp-auth-service/internal/identity"
)

// Sender delivers a plaintext one-time code to an identity. Implementations
// own their own timeout and retry policy; callers treat a returned error as
// a provider failure and do not retry.
type Sender interface {
	Deliver(ctx context.Context, id identity.Identity, code string) error
}

// Router picks the sender matching the identity channel.
type Router struct {
	Email Sender
	SMS   Sender
}

func (r *Router) Deliver(ctx context.Context, id identity.Identity, code string) error {
	if id.Kind == identity.KindEmail {
		return r.Email.Deliver(ctx, id, code)
	}
	return r.SMS.Deliver(ctx, id, code)
}
