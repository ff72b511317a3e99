package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSConfig contains configuration for the AWS Secrets Manager store
type AWSConfig struct {
	// AWS Region (e.g., "us-east-1")
	Region string

	// Optional: AWS profile name (for local development)
	Profile string

	// Optional: Custom endpoint (for LocalStack testing)
	Endpoint string
}

// secretValueAPI is the part of the Secrets Manager client the store uses
type secretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretStore reads secrets from AWS Secrets Manager
type AWSSecretStore struct {
	client secretValueAPI
	logger *zap.Logger
}

// NewAWSSecretStore creates a store using the default credentials chain
func NewAWSSecretStore(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSSecretStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		// Use specific profile (local development)
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager store initialized", zap.String("region", cfg.Region))

	return &AWSSecretStore{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		logger: logger,
	}, nil
}

// GetSecret reads the current version of a secret
func (s *AWSSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)

	start := time.Now()
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		s.logger.Error("Failed to retrieve secret",
			zap.String("path", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	raw := aws.ToString(result.SecretString)
	if raw == "" && len(result.SecretBinary) > 0 {
		raw = string(result.SecretBinary)
	}
	value, err := pickField(raw, field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	s.logger.Debug("Secret retrieved",
		zap.String("path", name),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &ports.Secret{Value: value, Version: aws.ToString(result.VersionId)}, nil
}
