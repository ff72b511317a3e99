package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// GCPSecretStore reads secrets from Google Cloud Secret Manager.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS, workload identity
// or the default application credentials.
type GCPSecretStore struct {
	client    *secretmanager.Client
	projectID string
	logger    *zap.Logger
}

// NewGCPSecretStore creates a Secret Manager client for projectID
func NewGCPSecretStore(ctx context.Context, projectID string, logger *zap.Logger) (*GCPSecretStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager store initialized", zap.String("project_id", projectID))

	return &GCPSecretStore{client: client, projectID: projectID, logger: logger}, nil
}

// Close closes the Secret Manager client
func (s *GCPSecretStore) Close() error {
	return s.client.Close()
}

// GetSecret reads the latest version of a secret
func (s *GCPSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)
	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		s.logger.Error("Failed to access GCP secret",
			zap.String("path", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", name, err)
	}

	value, err := pickField(string(result.Payload.Data), field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	return &ports.Secret{Value: value, Version: versionOf(result.Name)}, nil
}

// versionOf extracts the version from projects/*/secrets/*/versions/{version}
func versionOf(name string) string {
	parts := strings.Split(name, "/")
	if len(parts) >= 6 && parts[4] == "versions" {
		return parts[5]
	}
	return "latest"
}
