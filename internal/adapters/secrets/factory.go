package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Supported backends
const (
	BackendNone  = ""
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
	BackendGCP   = "gcp"
)

// Config selects and configures a secret backend
type Config struct {
	Backend      string
	LocalPath    string
	GCPProjectID string
	AWS          AWSConfig
	Vault        VaultConfig
	CacheTTL     time.Duration
}

// New builds the configured backend wrapped in a TTL cache.
// It returns nil when no backend is configured.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretStore, error) {
	var (
		store ports.SecretStore
		err   error
	)

	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendLocal:
		logger.Warn("Using local secret store - NOT for production use!",
			zap.String("path", cfg.LocalPath))
		store = NewLocalSecretStore(cfg.LocalPath, logger)
	case BackendAWS:
		store, err = NewAWSSecretStore(ctx, cfg.AWS, logger)
	case BackendVault:
		store, err = NewVaultSecretStore(ctx, cfg.Vault, logger)
	case BackendGCP:
		store, err = NewGCPSecretStore(ctx, cfg.GCPProjectID, logger)
	default:
		return nil, fmt.Errorf("unknown secret backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewCachedStore(store, cfg.CacheTTL), nil
}
