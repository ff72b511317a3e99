package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// ConfirmExecutor finishes an authorize or charge after customer authentication (3DS)
type ConfirmExecutor struct {
	logger *zap.Logger
}

// NewConfirmExecutor creates a confirm executor
func NewConfirmExecutor(logger *zap.Logger) *ConfirmExecutor {
	return &ConfirmExecutor{logger: logger}
}

func (e *ConfirmExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionConfirm
}

// Execute refreshes the source from its payment intent, confirming the intent
// first when Stripe still waits for confirmation. The confirm transaction
// mirrors the source outcome and never stays active.
func (e *ConfirmExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	t := ex.Transaction
	source, err := ex.requireSource()
	if err != nil {
		return nil, err
	}
	if source.Successful {
		return nil, domain.ErrTxnAlreadyProcessed.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "payment intent already completed")
	}
	if !source.CanBeConfirmed() {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "source is not waiting for confirmation")
	}

	t.Reference = source.Reference
	t.Amount = source.Amount

	pi, err := ex.Gateway.RetrievePaymentIntent(ctx, source.Reference)
	if err != nil {
		return failed(t, err), nil
	}

	if pi.Status == ports.IntentRequiresConfirmation {
		pi, err = ex.Gateway.ConfirmPaymentIntent(ctx, pi.ID, &ports.ConfirmPaymentIntentRequest{
			PaymentMethodID: source.Option(domain.OptionPaymentMethodID),
			ReturnURL:       source.Option(domain.OptionReturnURL),
			IdempotencyKey:  t.ID,
		})
		if err != nil {
			result := failed(t, err)
			if gwErr, ok := ports.AsGatewayError(err); ok && gwErr.PaymentIntent != nil {
				applyIntent(source, gwErr.PaymentIntent)
			}
			return result, nil
		}
	}

	sourceResult := applyIntent(source, pi)
	e.logger.Info("Payment intent confirmed",
		zap.String("source_transaction_id", source.ID),
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)))

	t.Successful = source.Successful
	t.Active = false
	storeIntent(t, pi)

	return &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: pi.ID,
		Successful:      t.Successful,
		RequiresAction:  sourceResult.RequiresAction,
		ClientSecret:    sourceResult.ClientSecret,
		ErrorCode:       sourceResult.ErrorCode,
		Message:         sourceResult.Message,
	}, nil
}
