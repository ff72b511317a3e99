package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/stripe-payment-service/internal/adapters/database"
	"github.com/kevin07696/stripe-payment-service/internal/adapters/postgres"
	"github.com/kevin07696/stripe-payment-service/internal/adapters/secrets"
	"github.com/kevin07696/stripe-payment-service/internal/adapters/stripeapi"
	"github.com/kevin07696/stripe-payment-service/internal/auth"
	"github.com/kevin07696/stripe-payment-service/internal/config"
	cronHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/cron"
	paymentHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/payment"
	webhookHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/webhook"
	securitymw "github.com/kevin07696/stripe-payment-service/internal/middleware"
	"github.com/kevin07696/stripe-payment-service/internal/services/notification"
	paymentService "github.com/kevin07696/stripe-payment-service/internal/services/payment"
	"github.com/kevin07696/stripe-payment-service/internal/services/reauthorization"
	webhookService "github.com/kevin07696/stripe-payment-service/internal/services/webhook"
	"github.com/kevin07696/stripe-payment-service/pkg/middleware"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/kevin07696/stripe-payment-service/pkg/shutdown"
)

// webhookTolerance is how old a signed Stripe delivery may be
const webhookTolerance = 5 * time.Minute

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting stripe payment service",
		zap.Int("port", cfg.Server.Port),
		zap.Int("payment_methods", len(cfg.Stripe)),
	)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("Service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := resolveSecrets(ctx, cfg, logger); err != nil {
		return err
	}

	timeouts := resilience.DefaultTimeoutConfig()
	shutdownManager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	// Database
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	monitorCtx, stopMonitoring := context.WithCancel(ctx)
	dbAdapter.StartPoolMonitoring(monitorCtx, 30*time.Second)
	shutdownManager.RegisterNoErr("database", func() {
		stopMonitoring()
		dbAdapter.Close()
	})

	db := postgres.NewDBExecutor(dbAdapter.Pool())
	txRepo := postgres.NewTransactionRepository(db)
	eventRepo := postgres.NewWebhookEventRepository(db)

	// Stripe
	settings := config.NewSettingsProvider(cfg.Stripe)
	gateways := stripeapi.NewGatewayFactory(stripeapi.DefaultConfig(), logger)

	// Services
	notifier := notification.NewNotifier(notification.Config{
		URL:         cfg.Notification.URL,
		Secret:      cfg.Notification.Secret,
		Timeout:     cfg.Notification.Timeout,
		MaxAttempts: cfg.Notification.MaxAttempts,
	}, logger)

	payments := paymentService.NewService(db, txRepo, settings, gateways, paymentService.NewDefaultExecutor(logger), logger)
	processor := webhookService.NewProcessor(db, txRepo, eventRepo, settings, stripeapi.NewWebhookVerifier(webhookTolerance), notifier, logger)
	reauth := reauthorization.NewService(txRepo, settings, payments, notifier, logger)

	// Payment actions hold row locks while Stripe answers; the pool must outlive them
	inflight := shutdown.NewInFlightTracker("payments", logger)
	shutdownManager.Register("inflight", inflight.Shutdown)

	authenticator, err := newAuthenticator(cfg.Auth, logger)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	shutdownManager.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)

	router := newRouter(routerDeps{
		payments:      paymentHandler.NewHandler(payments, settings, timeouts, logger),
		webhooks:      webhookHandler.NewHandler(processor, timeouts, logger),
		cron:          cronHandler.NewReAuthorizationHandler(reauth, timeouts, logger, cfg.CronSecret),
		auth:          authenticator,
		rateLimiter:   rateLimiter,
		inflight:      inflight,
		timeouts:      timeouts,
		corsOrigins:   cfg.CORSOrigins,
		isDevelopment: cfg.Logger.Development,
	})

	// HTTP servers
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()
	shutdownManager.Register("http", server.Shutdown)

	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort),
		observability.NewHealthChecker(dbAdapter),
		logger,
	)
	shutdownManager.Register("metrics", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	// Optional in-process schedule; POST /cron/re-authorize works either way
	if cfg.ReAuthorization.Interval > 0 {
		worker := shutdown.NewBackgroundWorker("re-authorization", logger)
		worker.Start(func(ctx context.Context) {
			reauth.Start(ctx, cfg.ReAuthorization.Interval)
		})
		shutdownManager.Register("re-authorization", worker.Shutdown)
	}

	shutdownManager.WaitForShutdown(ctx)
	return nil
}

// resolveSecrets replaces "secret:" references in the Stripe settings
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := secrets.New(ctx, cfg.Secrets, logger)
	if err != nil {
		return fmt.Errorf("initialize secret store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close secret store", zap.Error(err))
			}
		}()
	}
	if err := cfg.ResolveSecrets(ctx, store); err != nil {
		return err
	}
	return nil
}

// initLogger builds a production JSON logger, or a development console one
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newAuthenticator builds the back-office credential checks. With nothing
// configured every back-office request is rejected.
func newAuthenticator(cfg config.AuthConfig, logger *zap.Logger) (*securitymw.Authenticator, error) {
	var tokens securitymw.TokenVerifier
	if cfg.JWTKeysDir != "" {
		keys := auth.NewPublicKeyStore()
		if err := keys.LoadKeysFromDirectory(cfg.JWTKeysDir); err != nil {
			return nil, fmt.Errorf("load JWT issuer keys: %w", err)
		}
		tokens = auth.NewVerifier(keys, cfg.JWTAudience)
		logger.Info("Loaded JWT issuer keys", zap.Int("count", keys.Len()))
	}

	var apiKeys securitymw.KeyAuthenticator
	if len(cfg.APIKeys) > 0 {
		store := auth.NewAPIKeyStore(cfg.APIKeySalt)
		for _, k := range cfg.APIKeys {
			store.Add(k.Name, k.Key, auth.BackOfficeScopes...)
		}
		apiKeys = store
		logger.Info("Loaded back-office API keys", zap.Int("count", store.Len()))
	}

	if tokens == nil && apiKeys == nil {
		logger.Warn("No back-office credentials configured; transaction reads and follow-up actions are disabled")
	}
	return securitymw.NewAuthenticator(tokens, apiKeys, logger), nil
}
