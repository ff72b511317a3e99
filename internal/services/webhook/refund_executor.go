package webhook

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// RefundExecutor keeps refund transactions in line with Stripe refunds,
// including refunds issued from the dashboard
type RefundExecutor struct{}

func (e *RefundExecutor) Supports(eventType string) bool {
	switch eventType {
	case ports.EventRefundCreated, ports.EventRefundUpdated, ports.EventChargeRefundUpdated:
		return true
	}
	return false
}

func (e *RefundExecutor) Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error) {
	refund := r.Event.Refund
	if refund == nil || refund.ID == "" {
		return nil, nil
	}

	// Locking the refunded transactions first waits out a refund the
	// payment service is still recording
	sources, err := r.find(ctx, refund.PaymentIntentID, domain.ActionCapture, domain.ActionCharge)
	if err != nil {
		return nil, err
	}

	existing, err := r.find(ctx, refund.ID, domain.ActionRefund)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		t := existing[0]
		if !refundReversed(refund.Status) || !t.Successful {
			return nil, nil
		}
		t.Successful = false
		t.SetResponseValue("status", refund.Status)
		if refund.FailureReason != "" {
			t.SetResponseValue("failure_reason", refund.FailureReason)
		}
		if err := r.update(ctx, t); err != nil {
			return nil, err
		}
		return []*domain.PaymentTransaction{t}, nil
	}

	switch refund.Status {
	case ports.RefundSucceeded, ports.RefundPending, ports.RefundRequiresAction:
	default:
		return nil, nil
	}

	source := firstMatching(sources, func(t *domain.PaymentTransaction) bool { return t.Successful })
	if source == nil {
		return nil, nil
	}

	currency := source.Currency
	if refund.Currency != "" {
		currency = refund.Currency
	}
	remaining, err := r.refundable(ctx, source)
	if err != nil {
		return nil, err
	}
	if !remaining.IsPositive() {
		return nil, nil
	}
	amount := domain.FromMinorUnits(refund.Amount, currency)
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	t := domain.NewDependentTransaction(source, domain.ActionRefund, amount)
	t.Reference = refund.ID
	t.Successful = true
	t.SetResponseValue("refund_id", refund.ID)
	t.SetResponseValue("payment_intent_id", refund.PaymentIntentID)
	t.SetResponseValue("status", refund.Status)
	if refund.Reason != "" {
		t.SetOption(domain.OptionRefundReason, refund.Reason)
	}
	if err := r.create(ctx, t); err != nil {
		return nil, err
	}
	return []*domain.PaymentTransaction{t}, nil
}

func refundReversed(status string) bool {
	return status == ports.RefundFailed || status == ports.RefundCanceled
}

// refundable returns what the ledger still allows to be refunded from source
func (r *Reconciliation) refundable(ctx context.Context, source *domain.PaymentTransaction) (decimal.Decimal, error) {
	dependents, err := r.dependents(ctx, source.ID)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := source.Amount
	for _, t := range dependents {
		if t.Action == domain.ActionRefund && t.Successful {
			remaining = remaining.Sub(t.Amount)
		}
	}
	return remaining, nil
}
