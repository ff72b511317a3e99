package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/internal/services/notification"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"go.uber.org/zap"
)

// Notifier forwards reconciliation outcomes to the merchant
type Notifier interface {
	Notify(ctx context.Context, event *notification.Event) error
}

// Result describes what processing an event did
type Result struct {
	EventID   string   `json:"event_id"`
	EventType string   `json:"event_type"`
	Touched   []string `json:"transaction_ids,omitempty"`
	Duplicate bool     `json:"duplicate"`
	Ignored   bool     `json:"ignored"`
}

// Processor verifies Stripe webhook deliveries and reconciles the ledger with them
type Processor struct {
	db        ports.DBPort
	txRepo    ports.TransactionRepository
	events    ports.WebhookEventRepository
	settings  ports.SettingsProvider
	verifier  ports.WebhookVerifier
	notifier  Notifier
	executors []EventExecutor
	logger    *zap.Logger
}

// NewProcessor creates a processor. notifier may be nil.
func NewProcessor(
	db ports.DBPort,
	txRepo ports.TransactionRepository,
	events ports.WebhookEventRepository,
	settings ports.SettingsProvider,
	verifier ports.WebhookVerifier,
	notifier Notifier,
	logger *zap.Logger,
	executors ...EventExecutor,
) *Processor {
	if len(executors) == 0 {
		executors = DefaultExecutors()
	}
	return &Processor{
		db:        db,
		txRepo:    txRepo,
		events:    events,
		settings:  settings,
		verifier:  verifier,
		notifier:  notifier,
		executors: executors,
		logger:    logger,
	}
}

// Process handles one webhook delivery for the integration named by paymentMethod
func (p *Processor) Process(ctx context.Context, paymentMethod string, payload []byte, signature string) (*Result, error) {
	settings, err := p.settings.Get(paymentMethod)
	if err != nil {
		return nil, err
	}
	if settings.WebhookSecret == "" {
		return nil, domain.ErrWebhookSignature.WithDetail("reason", "no webhook secret configured")
	}

	event, err := p.verifier.ConstructEvent(payload, signature, settings.WebhookSecret)
	if err != nil {
		observability.RecordWebhookEvent("unknown", "rejected")
		p.logger.Warn("Rejected webhook delivery",
			zap.String("payment_method", paymentMethod),
			zap.Error(err))
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrorCodeWebhookSignature, "webhook could not be decoded", err)
	}

	result := &Result{EventID: event.ID, EventType: event.Type}

	executor := p.executorFor(event.Type)
	if executor == nil {
		result.Ignored = true
		observability.RecordWebhookEvent(event.Type, "ignored")
		p.logger.Debug("Ignoring unsupported webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return result, nil
	}

	err = p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		fresh, err := p.events.MarkProcessed(ctx, tx, event.ID, event.Type, paymentMethod)
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		if !fresh {
			result.Duplicate = true
			return nil
		}

		touched, err := executor.Execute(ctx, &Reconciliation{
			Event:         event,
			PaymentMethod: paymentMethod,
			repo:          p.txRepo,
			db:            tx,
		})
		if err != nil {
			return err
		}
		for _, t := range touched {
			result.Touched = append(result.Touched, t.ID)
		}
		return nil
	})
	if err != nil {
		observability.RecordWebhookEvent(event.Type, "failed")
		p.logger.Error("Webhook reconciliation failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err))
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "webhook reconciliation failed", err)
	}

	switch {
	case result.Duplicate:
		observability.RecordWebhookEvent(event.Type, "duplicate")
	case len(result.Touched) == 0:
		result.Ignored = true
		observability.RecordWebhookEvent(event.Type, "ignored")
	default:
		observability.RecordWebhookEvent(event.Type, "processed")
		p.notify(ctx, paymentMethod, result)
	}

	p.logger.Info("Webhook event handled",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("payment_method", paymentMethod),
		zap.Bool("duplicate", result.Duplicate),
		zap.Strings("transaction_ids", result.Touched))

	return result, nil
}

func (p *Processor) executorFor(eventType string) EventExecutor {
	for _, e := range p.executors {
		if e.Supports(eventType) {
			return e
		}
	}
	return nil
}

// notify is best effort; the ledger is already committed
func (p *Processor) notify(ctx context.Context, paymentMethod string, result *Result) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.Notify(ctx, notification.NewEvent(notification.EventPaymentReconciled, map[string]interface{}{
		"payment_method":  paymentMethod,
		"stripe_event_id": result.EventID,
		"stripe_event":    result.EventType,
		"transaction_ids": result.Touched,
	}))
	if err != nil {
		p.logger.Warn("Failed to notify merchant of reconciliation",
			zap.String("event_id", result.EventID),
			zap.Error(err))
	}
}
