package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var refundReasons = map[string]bool{
	"duplicate":             true,
	"fraudulent":            true,
	"requested_by_customer": true,
}

// RefundExecutor returns captured funds to the customer
type RefundExecutor struct {
	logger *zap.Logger
}

// NewRefundExecutor creates a refund executor
func NewRefundExecutor(logger *zap.Logger) *RefundExecutor {
	return &RefundExecutor{logger: logger}
}

func (e *RefundExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionRefund
}

// Execute refunds a capture or charge, defaulting to everything not yet refunded.
// Pending refunds, and refunds waiting on the customer, count as successful;
// a failure arrives later by webhook.
func (e *RefundExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	t := ex.Transaction
	source, err := ex.requireSource()
	if err != nil {
		return nil, err
	}
	if !source.CanBeRefunded() {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "source collected no funds")
	}

	state, err := ledgerState(ctx, ex, source)
	if err != nil {
		return nil, err
	}
	if t.Amount.IsZero() {
		t.Amount = state.RefundableAmount(source.ID)
	}
	if ok, reason := state.CanRefund(source.ID, t.Amount); !ok {
		return nil, domain.ErrTxnAmountExceeded.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("refundable", state.RefundableAmount(source.ID).String()).
			WithDetail("reason", reason)
	}

	req := &ports.CreateRefundRequest{
		PaymentIntentID: source.Reference,
		Amount:          domain.ToMinorUnits(t.Amount, t.Currency),
		IdempotencyKey:  t.ID,
		Metadata:        intentMetadata(t),
	}
	if reason := t.Option(domain.OptionRefundReason); refundReasons[reason] {
		req.Reason = reason
	}
	t.Request = map[string]interface{}{
		"payment_intent": req.PaymentIntentID,
		"amount":         req.Amount,
		"reason":         req.Reason,
	}

	refund, err := ex.Gateway.CreateRefund(ctx, req)
	if err != nil {
		if gwErr, ok := ports.AsGatewayError(err); ok && gwErr.Code == ports.ErrCodeChargeAlreadyRefunded {
			e.logger.Info("Charge already refunded",
				zap.String("transaction_id", t.ID),
				zap.String("payment_intent_id", source.Reference))
			// The existing Stripe refund is recorded when its webhook arrives
			t.Amount = decimal.Zero
			t.SetResponseValue("already_refunded", true)
			return succeeded(t), nil
		}
		return failed(t, err), nil
	}

	t.Reference = refund.ID
	t.SetResponseValue("refund_id", refund.ID)
	t.SetResponseValue("status", refund.Status)
	t.SetResponseValue("payment_intent_id", refund.PaymentIntentID)
	if refund.ChargeID != "" {
		t.SetResponseValue("charge_id", refund.ChargeID)
	}

	switch refund.Status {
	case ports.RefundSucceeded, ports.RefundPending, ports.RefundRequiresAction:
		result := succeeded(t)
		result.PaymentIntentID = source.Reference
		return result, nil
	default:
		if refund.FailureReason != "" {
			t.SetResponseValue("failure_reason", refund.FailureReason)
		}
		t.Successful = false
		t.Active = false
		return &domain.ActionResult{
			TransactionID:   t.ID,
			PaymentIntentID: source.Reference,
			ErrorCode:       string(domain.ErrorCodeGatewayDeclined),
			Message:         "refund ended in status " + refund.Status,
		}, nil
	}
}
