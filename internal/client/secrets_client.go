package client

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"otp-auth-service/internal/util"
)

// SecretsClient fetches secret payloads from AWS Secrets Manager. It
// implements secret.Fetcher; caching is the secret cache's job, this client
// is a pure read.
type SecretsClient struct {
	client *secretsmanager.Client
}

func NewSecretsClient(ctx context.Context, region string) (*SecretsClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	util.Info("Secrets Manager client initialized", zap.String("region", region))

	return &SecretsClient{
		client: secretsmanager.NewFromConfig(awsCfg),
	}, nil
}

func (s *SecretsClient) FetchSecret(ctx context.Context, ref string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string payload", ref)
	}
	return *out.SecretString, nil
}
