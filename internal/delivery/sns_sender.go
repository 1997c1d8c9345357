package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/otp"
	"otp-auth-service/internal/util"
)

// SNSSender delivers login codes over SMS via AWS SNS.
type SNSSender struct {
	client   *sns.Client
	senderID string
	logger   *zap.Logger
}

func NewSNSSender(ctx context.Context, region, senderID string, logger *zap.Logger) (*SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SNSSender{
		client:   sns.NewFromConfig(awsCfg),
		senderID: senderID,
		logger:   logger,
	}, nil
}

func (s *SNSSender) Deliver(ctx context.Context, id identity.Identity, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(id.Value),
		Message:     aws.String(fmt.Sprintf("Your login code is: %s", code)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		},
	})
	if err != nil {
		s.logger.Error("SNS publish failed",
			util.Uint64("identity_hash", id.LogKey()),
			util.ErrorField(err),
		)
		return fmt.Errorf("sns publish failed: %w", err)
	}

	s.logger.Info("sent login code via SNS",
		util.Uint64("identity_hash", id.LogKey()),
		util.String("code", otp.Mask(code)),
		util.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
