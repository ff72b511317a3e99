package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// CaptureExecutor collects funds held by an authorization
type CaptureExecutor struct {
	logger *zap.Logger
}

// NewCaptureExecutor creates a capture executor
func NewCaptureExecutor(logger *zap.Logger) *CaptureExecutor {
	return &CaptureExecutor{logger: logger}
}

func (e *CaptureExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionCapture
}

// Execute captures the source authorization, fully or partially.
// A successful capture closes the authorization; Stripe releases the rest.
func (e *CaptureExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	t := ex.Transaction
	source, err := ex.requireSource()
	if err != nil {
		return nil, err
	}
	if !source.CanBeCaptured() {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "source is not an open authorization")
	}

	if t.Amount.IsZero() {
		t.Amount = source.Amount
	}

	state, err := ledgerState(ctx, ex, source)
	if err != nil {
		return nil, err
	}
	if ok, reason := state.CanCapture(source.ID, t.Amount); !ok {
		return nil, domain.ErrTxnAmountExceeded.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", reason)
	}

	t.Reference = source.Reference
	t.Request = map[string]interface{}{
		"payment_intent":    source.Reference,
		"amount_to_capture": domain.ToMinorUnits(t.Amount, t.Currency),
	}

	pi, err := ex.Gateway.CapturePaymentIntent(ctx, source.Reference, &ports.CapturePaymentIntentRequest{
		AmountToCapture: domain.ToMinorUnits(t.Amount, t.Currency),
		IdempotencyKey:  t.ID,
	})
	if err != nil {
		if unexpectedState(err, ports.IntentSucceeded) {
			e.logger.Info("Payment intent already captured",
				zap.String("transaction_id", t.ID),
				zap.String("payment_intent_id", source.Reference))
			t.SetResponseValue("already_captured", true)
			source.Active = false
			return succeeded(t), nil
		}
		// Source stays open so the merchant can retry
		return failed(t, err), nil
	}

	storeIntent(t, pi)
	if pi.Status != ports.IntentSucceeded {
		t.Successful = false
		t.Active = false
		return &domain.ActionResult{
			TransactionID:   t.ID,
			PaymentIntentID: pi.ID,
			ErrorCode:       string(domain.ErrorCodeGatewayError),
			Message:         "capture ended in status " + string(pi.Status),
		}, nil
	}

	if pi.AmountReceived > 0 {
		t.SetResponseValue("amount_received", pi.AmountReceived)
	}
	source.Active = false
	return succeeded(t), nil
}
