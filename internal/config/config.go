package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/adapters/secrets"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// SecretPrefix marks a value that names a secret instead of holding it,
// e.g. STRIPE_CARD_SECRET_KEY=secret:prod/stripe#secret_key
const SecretPrefix = "secret:"

// Config holds all application configuration
type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	Logger          LoggerConfig
	Secrets         secrets.Config
	Notification    NotificationConfig
	ReAuthorization ReAuthorizationConfig
	RateLimit       RateLimitConfig
	Auth            AuthConfig
	Stripe          []*domain.StripeSettings
	CORSOrigins     []string
	CronSecret      string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// NotificationConfig holds the merchant notification endpoint
type NotificationConfig struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
}

// ReAuthorizationConfig holds the in-process re-authorization schedule.
// A zero Interval leaves scheduling to POST /cron/re-authorize.
type ReAuthorizationConfig struct {
	Interval  time.Duration
	BatchSize int
}

// RateLimitConfig holds per-IP API rate limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// AuthConfig holds the back-office credentials. Bearer tokens are verified
// against <issuer>.pem files in JWTKeysDir.
type AuthConfig struct {
	JWTKeysDir  string
	JWTAudience string
	APIKeys     []APIKey
	APIKeySalt  string
}

// APIKey is one back-office client key, e.g. AUTH_API_KEYS=reporting=secret:prod/reporting-key
type APIKey struct {
	Name string
	Key  string
}

// Enabled reports whether any credential source is configured
func (c *AuthConfig) Enabled() bool {
	return c.JWTKeysDir != "" || len(c.APIKeys) > 0
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	development := getEnv("ENVIRONMENT", "development") != "production"

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "stripe_payments"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", development),
		},
		Secrets: secrets.Config{
			Backend:      getEnv("SECRET_MANAGER", secrets.BackendNone),
			LocalPath:    getEnv("SECRETS_PATH", "./secrets"),
			GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
			AWS: secrets.AWSConfig{
				Region:   getEnv("AWS_REGION", "us-east-1"),
				Profile:  getEnv("AWS_PROFILE", ""),
				Endpoint: getEnv("AWS_SECRETS_ENDPOINT", ""),
			},
			Vault: secrets.VaultConfig{
				Address:    getEnv("VAULT_ADDR", ""),
				AuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
				Token:      getEnv("VAULT_TOKEN", ""),
				RoleID:     getEnv("VAULT_ROLE_ID", ""),
				SecretID:   getEnv("VAULT_SECRET_ID", ""),
				Namespace:  getEnv("VAULT_NAMESPACE", ""),
				MountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
				KVVersion:  getEnv("VAULT_KV_VERSION", "v2"),
			},
			CacheTTL: getEnvAsDuration("SECRET_CACHE_TTL", secrets.DefaultCacheTTL),
		},
		Notification: NotificationConfig{
			URL:         getEnv("MERCHANT_NOTIFICATION_URL", ""),
			Secret:      getEnv("MERCHANT_NOTIFICATION_SECRET", ""),
			Timeout:     getEnvAsDuration("MERCHANT_NOTIFICATION_TIMEOUT", 10*time.Second),
			MaxAttempts: getEnvAsInt("MERCHANT_NOTIFICATION_ATTEMPTS", 3),
		},
		ReAuthorization: ReAuthorizationConfig{
			Interval:  getEnvAsDuration("REAUTHORIZE_INTERVAL", 0),
			BatchSize: getEnvAsInt("REAUTHORIZE_BATCH_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Auth: AuthConfig{
			JWTKeysDir:  getEnv("AUTH_JWT_KEYS_DIR", ""),
			JWTAudience: getEnv("AUTH_JWT_AUDIENCE", ""),
			APIKeySalt:  getEnv("AUTH_API_KEY_SALT", "stripe_payment_service_"),
		},
		CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CronSecret:  getEnv("CRON_SECRET", ""),
	}

	stripe, err := loadStripeSettings()
	if err != nil {
		return nil, err
	}
	cfg.Stripe = stripe

	apiKeys, err := parseAPIKeys(getEnvAsList("AUTH_API_KEYS", nil))
	if err != nil {
		return nil, err
	}
	cfg.Auth.APIKeys = apiKeys

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}
	if cfg.Notification.URL != "" && cfg.Notification.Secret == "" {
		return nil, fmt.Errorf("MERCHANT_NOTIFICATION_SECRET is required when MERCHANT_NOTIFICATION_URL is set")
	}
	if !development && !cfg.Auth.Enabled() {
		return nil, fmt.Errorf("AUTH_JWT_KEYS_DIR or AUTH_API_KEYS is required in production")
	}

	return cfg, nil
}

// parseAPIKeys reads name=key pairs
func parseAPIKeys(entries []string) ([]APIKey, error) {
	out := make([]APIKey, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name, key, ok := strings.Cut(entry, "=")
		name, key = strings.TrimSpace(name), strings.TrimSpace(key)
		if !ok || name == "" || key == "" {
			return nil, fmt.Errorf("AUTH_API_KEYS entries must be name=key")
		}
		if seen[name] {
			return nil, fmt.Errorf("AUTH_API_KEYS lists %q twice", name)
		}
		seen[name] = true
		out = append(out, APIKey{Name: name, Key: key})
	}
	return out, nil
}

// loadStripeSettings reads one block of STRIPE_<ID>_* variables per entry of
// STRIPE_PAYMENT_METHODS
func loadStripeSettings() ([]*domain.StripeSettings, error) {
	ids := getEnvAsList("STRIPE_PAYMENT_METHODS", nil)
	if len(ids) == 0 {
		return nil, fmt.Errorf("STRIPE_PAYMENT_METHODS is required")
	}

	out := make([]*domain.StripeSettings, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("STRIPE_PAYMENT_METHODS lists %q twice", id)
		}
		seen[id] = true

		prefix := "STRIPE_" + envKey(id) + "_"
		s := &domain.StripeSettings{
			PaymentMethod:             id,
			Label:                     getEnv(prefix+"LABEL", id),
			Kind:                      domain.IntegrationKind(getEnv(prefix+"KIND", string(domain.IntegrationPaymentElement))),
			SecretKey:                 getEnv(prefix+"SECRET_KEY", ""),
			PublishableKey:            getEnv(prefix+"PUBLISHABLE_KEY", ""),
			WebhookSecret:             getEnv(prefix+"WEBHOOK_SECRET", ""),
			PaymentAction:             domain.PaymentActionMode(getEnv(prefix+"PAYMENT_ACTION", string(domain.PaymentActionAutomatic))),
			StatementDescriptorSuffix: getEnv(prefix+"STATEMENT_DESCRIPTOR_SUFFIX", ""),
			ReAuthorizeAfter:          getEnvAsDuration(prefix+"REAUTHORIZE_AFTER", domain.DefaultReAuthorizeAfter),
			ReAuthorizationEnabled:    getEnvAsBool(prefix+"REAUTHORIZATION_ENABLED", false),
			UserMonitoringEnabled:     getEnvAsBool(prefix+"USER_MONITORING_ENABLED", false),
		}
		if err := validateSettings(s, prefix); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func validateSettings(s *domain.StripeSettings, prefix string) error {
	if s.SecretKey == "" {
		return fmt.Errorf("%sSECRET_KEY is required", prefix)
	}
	switch s.PaymentAction {
	case domain.PaymentActionManual, domain.PaymentActionAutomatic:
	default:
		return fmt.Errorf("%sPAYMENT_ACTION must be manual or automatic, got %q", prefix, s.PaymentAction)
	}
	switch s.Kind {
	case domain.IntegrationPaymentElement, domain.IntegrationAppleGooglePay:
	default:
		return fmt.Errorf("%sKIND must be payment_element or apple_google_pay, got %q", prefix, s.Kind)
	}
	return nil
}

// ResolveSecrets replaces "secret:" references in the Stripe settings and API
// keys with values read from store
func (c *Config) ResolveSecrets(ctx context.Context, store ports.SecretStore) error {
	for _, s := range c.Stripe {
		for _, field := range []*string{&s.SecretKey, &s.PublishableKey, &s.WebhookSecret} {
			if err := resolveSecret(ctx, store, field, "payment method "+s.PaymentMethod); err != nil {
				return err
			}
		}
	}
	for i := range c.Auth.APIKeys {
		key := &c.Auth.APIKeys[i]
		if err := resolveSecret(ctx, store, &key.Key, "API key "+key.Name); err != nil {
			return err
		}
	}
	return nil
}

func resolveSecret(ctx context.Context, store ports.SecretStore, field *string, owner string) error {
	if !strings.HasPrefix(*field, SecretPrefix) {
		return nil
	}
	if store == nil {
		return fmt.Errorf("%s references a secret but SECRET_MANAGER is not set", owner)
	}
	path := strings.TrimPrefix(*field, SecretPrefix)
	secret, err := store.GetSecret(ctx, path)
	if err != nil {
		return fmt.Errorf("resolve secret %s for %s: %w", path, owner, err)
	}
	*field = secret.Value
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// envKey turns a payment method id into an environment variable segment
func envKey(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
