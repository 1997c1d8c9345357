package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/otp"
	"otp-auth-service/internal/util"
)

const emailSubject = "Your login code"

// SESSender delivers login codes over email via AWS SESv2.
type SESSender struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

func NewSESSender(ctx context.Context, region, fromAddress string, logger *zap.Logger) (*SESSender, error) {
	if fromAddress == "" {
		return nil, fmt.Errorf("SES from address is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{
		client: sesv2.NewFromConfig(awsCfg),
		from:   fromAddress,
		logger: logger,
	}, nil
}

func (s *SESSender) Deliver(ctx context.Context, id identity.Identity, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	htmlBody := fmt.Sprintf("<p>Your login code is: <strong>%s</strong></p>", code)
	textBody := fmt.Sprintf("Your login code is: %s", code)

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{id.Value},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(emailSubject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	})
	if err != nil {
		s.logger.Error("SES send failed",
			util.Uint64("identity_hash", id.LogKey()),
			util.ErrorField(err),
		)
		return fmt.Errorf("ses send failed: %w", err)
	}

	s.logger.Info("sent login code via SES",
		util.Uint64("identity_hash", id.LogKey()),
		util.String("code", otp.Mask(code)),
		util.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
