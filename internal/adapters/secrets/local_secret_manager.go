package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// LocalSecretStore reads secrets from files under a base directory.
// WARNING: This is for development only. Use a managed backend in production.
type LocalSecretStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretStore creates a filesystem secret store
func NewLocalSecretStore(basePath string, logger *zap.Logger) *LocalSecretStore {
	return &LocalSecretStore{basePath: basePath, logger: logger}
}

// GetSecret reads a plain text or JSON secret file
func (s *LocalSecretStore) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)
	// Rooting the path keeps it inside basePath
	clean := filepath.Clean("/" + name)

	s.logger.Debug("Reading secret from filesystem", zap.String("path", name))

	data, err := os.ReadFile(filepath.Join(s.basePath, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("secret not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	value, err := pickField(string(data), field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	return &ports.Secret{Value: value, Version: "local"}, nil
}
