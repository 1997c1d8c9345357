package delivery

import (
	"context"

	"go.uber.org/zap"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/otp"
	"otp-auth-service/internal/util"
)

// DevSender logs the masked code instead of sending it. It stands in for
// both channels when DELIVERY_DEV_MODE is set.
type DevSender struct {
	logger *zap.Logger
}

func NewDevSender(logger *zap.Logger) *DevSender {
	return &DevSender{logger: logger}
}

func (s *DevSender) Deliver(_ context.Context, id identity.Identity, code string) error {
	s.logger.Info("dev delivery: login code suppressed",
		util.String("kind", string(id.Kind)),
		util.Uint64("identity_hash", id.LogKey()),
		util.String("code", otp.Mask(code)),
	)
	return nil
}
