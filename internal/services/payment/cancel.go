package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// DefaultCancelReason is sent when the caller gives none
const DefaultCancelReason = "requested_by_customer"

var cancelReasons = map[string]bool{
	"duplicate":             true,
	"fraudulent":            true,
	"requested_by_customer": true,
	"abandoned":             true,
}

// CancelExecutor releases an authorization
type CancelExecutor struct {
	logger *zap.Logger
}

// NewCancelExecutor creates a cancel executor
func NewCancelExecutor(logger *zap.Logger) *CancelExecutor {
	return &CancelExecutor{logger: logger}
}

func (e *CancelExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionCancel
}

// Execute cancels the source payment intent and closes the source.
// An intent Stripe reports as already canceled counts as success.
func (e *CancelExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	t := ex.Transaction
	source, err := ex.requireSource()
	if err != nil {
		return nil, err
	}
	if !source.CanBeCanceled() {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "source holds no authorization")
	}
	state, err := ledgerState(ctx, ex, source)
	if err != nil {
		return nil, err
	}
	if ok, reason := state.CanCancel(source.ID); !ok {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", reason)
	}

	reason := t.Option(domain.OptionCancelReason)
	if !cancelReasons[reason] {
		reason = DefaultCancelReason
	}

	t.Amount = source.Amount
	t.Reference = source.Reference
	t.Request = map[string]interface{}{
		"payment_intent":      source.Reference,
		"cancellation_reason": reason,
	}

	pi, err := ex.Gateway.CancelPaymentIntent(ctx, source.Reference, &ports.CancelPaymentIntentRequest{
		Reason:         reason,
		IdempotencyKey: t.ID,
	})
	if err != nil {
		if unexpectedState(err, ports.IntentCanceled) {
			e.logger.Info("Payment intent already canceled",
				zap.String("transaction_id", t.ID),
				zap.String("payment_intent_id", source.Reference))
			t.SetResponseValue("already_canceled", true)
			source.Active = false
			return succeeded(t), nil
		}
		return failed(t, err), nil
	}

	storeIntent(t, pi)
	if pi.Status != ports.IntentCanceled {
		t.Successful = false
		t.Active = false
		return &domain.ActionResult{
			TransactionID:   t.ID,
			PaymentIntentID: pi.ID,
			ErrorCode:       string(domain.ErrorCodeGatewayError),
			Message:         "cancel ended in status " + string(pi.Status),
		}, nil
	}

	source.Active = false
	return succeeded(t), nil
}
