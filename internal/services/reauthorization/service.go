package reauthorization

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/internal/services/notification"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/kevin07696/stripe-payment-service/pkg/timeutil"
	"go.uber.org/zap"
)

// DefaultBatchSize caps how many authorizations one run replaces per integration
const DefaultBatchSize = 100

// PaymentExecutor runs prepared ledger transactions
type PaymentExecutor interface {
	ExecuteTransaction(ctx context.Context, t *domain.PaymentTransaction) (*domain.ActionResult, error)
}

// Notifier tells the merchant about authorizations that could not be replaced
type Notifier interface {
	Notify(ctx context.Context, event *notification.Event) error
}

// RunOptions tune one run
type RunOptions struct {
	// AsOf replaces the current time when picking expiring authorizations
	AsOf      time.Time
	BatchSize int32
}

// RunResult counts what a run did
type RunResult struct {
	Errors    []error
	Processed int
	Succeeded int
	Failed    int
}

// Service replaces card authorizations before Stripe releases them
type Service struct {
	txRepo   ports.TransactionRepository
	settings ports.SettingsProvider
	payments PaymentExecutor
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a re-authorization service. notifier may be nil.
func NewService(
	txRepo ports.TransactionRepository,
	settings ports.SettingsProvider,
	payments PaymentExecutor,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		txRepo:   txRepo,
		settings: settings,
		payments: payments,
		notifier: notifier,
		logger:   logger,
		now:      timeutil.Now,
	}
}

// Run re-authorizes every open authorization older than its integration's threshold
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := &RunResult{}
	for _, settings := range s.settings.All() {
		if !settings.ReAuthorizationEnabled || !settings.IsManualCapture() {
			continue
		}

		cutoff := asOf.Add(-settings.ReAuthorizationThreshold())
		auths, err := s.txRepo.ListExpiringAuthorizations(ctx, nil, []string{settings.PaymentMethod}, cutoff, batchSize)
		if err != nil {
			return result, domain.WrapError(domain.ErrorCodeDatabaseError, "list expiring authorizations", err)
		}

		s.logger.Info("Re-authorizing expiring authorizations",
			zap.String("payment_method", settings.PaymentMethod),
			zap.Time("created_before", cutoff),
			zap.Int("count", len(auths)))

		for _, auth := range auths {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Processed++
			if err := s.reAuthorize(ctx, auth); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err)
				observability.RecordReAuthorization(settings.PaymentMethod, "failed")
				s.notifyFailure(ctx, auth, err)
				continue
			}
			result.Succeeded++
			observability.RecordReAuthorization(settings.PaymentMethod, "success")
		}
	}

	s.logger.Info("Re-authorization run completed",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *Service) reAuthorize(ctx context.Context, auth *domain.PaymentTransaction) error {
	t := domain.NewDependentTransaction(auth, domain.ActionReAuthorize, auth.Amount)
	result, err := s.payments.ExecuteTransaction(ctx, t)
	if err != nil {
		s.logger.Error("Re-authorization failed",
			zap.String("authorization_id", auth.ID),
			zap.Error(err))
		return fmt.Errorf("re-authorize %s: %w", auth.ID, err)
	}
	if !result.Successful {
		s.logger.Warn("Re-authorization declined",
			zap.String("authorization_id", auth.ID),
			zap.String("transaction_id", t.ID),
			zap.String("error_code", result.ErrorCode))
		return fmt.Errorf("re-authorize %s: declined: %s", auth.ID, result.ErrorCode)
	}
	return nil
}

func (s *Service) notifyFailure(ctx context.Context, auth *domain.PaymentTransaction, cause error) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notification.NewEvent(notification.EventReAuthorizationFailed, map[string]interface{}{
		"authorization_id":  auth.ID,
		"payment_method":    auth.PaymentMethod,
		"entity_class":      auth.EntityClass,
		"entity_identifier": auth.EntityIdentifier,
		"payment_intent_id": auth.Reference,
		"amount":            auth.Amount.String(),
		"currency":          auth.Currency,
		"error":             cause.Error(),
	}))
	if err != nil {
		s.logger.Warn("Failed to notify merchant of re-authorization failure",
			zap.String("authorization_id", auth.ID),
			zap.Error(err))
	}
}

// Start runs the job every interval until ctx is done
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, RunOptions{}); err != nil {
				s.logger.Error("Scheduled re-authorization run failed", zap.Error(err))
			}
		}
	}
}
