package webhook

import (
	"context"
	"fmt"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// EventExecutor applies one kind of Stripe event to the ledger.
// It returns the transactions it created or changed; none means the event
// was already reflected in the ledger.
type EventExecutor interface {
	Supports(eventType string) bool
	Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error)
}

// Reconciliation is the input of one executor run, bound to the database
// transaction that recorded the event
type Reconciliation struct {
	Event         *ports.WebhookEvent
	PaymentMethod string
	repo          ports.TransactionRepository
	db            ports.DBTX
}

// DefaultExecutors returns the executors for every handled event type
func DefaultExecutors() []EventExecutor {
	return []EventExecutor{
		&IntentCanceledExecutor{},
		&IntentSucceededExecutor{},
		&AmountCapturableExecutor{},
		&PaymentFailedExecutor{},
		&RefundExecutor{},
	}
}

// find returns the transactions of this integration holding reference, newest first, locked
func (r *Reconciliation) find(ctx context.Context, reference string, actions ...domain.Action) ([]*domain.PaymentTransaction, error) {
	if reference == "" {
		return nil, nil
	}
	txs, err := r.repo.FindByReference(ctx, r.db, ports.TransactionFilter{
		PaymentMethod: r.PaymentMethod,
		Reference:     reference,
		Actions:       actions,
	})
	if err != nil {
		return nil, fmt.Errorf("find transactions for %s: %w", reference, err)
	}
	return txs, nil
}

// dependents returns the transactions created from sourceID, oldest first
func (r *Reconciliation) dependents(ctx context.Context, sourceID string) ([]*domain.PaymentTransaction, error) {
	txs, err := r.repo.ListBySource(ctx, r.db, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of %s: %w", sourceID, err)
	}
	return txs, nil
}

func (r *Reconciliation) create(ctx context.Context, t *domain.PaymentTransaction) error {
	r.stamp(t)
	if err := r.repo.Create(ctx, r.db, t); err != nil {
		return fmt.Errorf("create %s transaction: %w", t.Action, err)
	}
	return nil
}

func (r *Reconciliation) update(ctx context.Context, t *domain.PaymentTransaction) error {
	r.stamp(t)
	if err := r.repo.Update(ctx, r.db, t); err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return nil
}

// stamp records which event last touched t
func (r *Reconciliation) stamp(t *domain.PaymentTransaction) {
	t.SetResponseValue("webhook_event_id", r.Event.ID)
	t.SetResponseValue("webhook_event_type", r.Event.Type)
}

func firstMatching(txs []*domain.PaymentTransaction, match func(*domain.PaymentTransaction) bool) *domain.PaymentTransaction {
	for _, t := range txs {
		if match(t) {
			return t
		}
	}
	return nil
}
