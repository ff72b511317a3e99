package payment

import (
	"context"
	"fmt"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"go.uber.org/zap"
)

// ReAuthorizeExecutor replaces an authorization before Stripe releases it.
// It cancels the old hold and places a new off-session hold on the stored card.
type ReAuthorizeExecutor struct {
	cancel    ActionExecutor
	authorize ActionExecutor
	logger    *zap.Logger
}

// NewReAuthorizeExecutor creates a re-authorize executor
func NewReAuthorizeExecutor(cancel, authorize ActionExecutor, logger *zap.Logger) *ReAuthorizeExecutor {
	return &ReAuthorizeExecutor{cancel: cancel, authorize: authorize, logger: logger}
}

func (e *ReAuthorizeExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionReAuthorize
}

// Execute cancels the source, then authorizes the same amount again.
// The re_authorize transaction is successful only if the new authorization is,
// and it is never active: the new authorize transaction holds the funds.
func (e *ReAuthorizeExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	t := ex.Transaction
	source, err := ex.requireSource()
	if err != nil {
		return nil, err
	}
	if !source.IsOpenAuthorization() {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("source_transaction_id", source.ID).
			WithDetail("reason", "source is not an open authorization")
	}
	if source.Option(domain.OptionPaymentMethodID) == "" || source.Option(domain.OptionCustomerID) == "" {
		return nil, domain.ErrCustomerRequired.WithDetail("source_transaction_id", source.ID)
	}

	t.Amount = source.Amount
	t.Reference = source.Reference

	cancel, err := e.cancelPrevious(ctx, ex, source)
	if err != nil {
		return nil, err
	}

	auth := domain.NewDependentTransaction(t, domain.ActionAuthorize, source.Amount)
	auth.CopyOptions(source)
	delete(auth.TransactionOptions, domain.OptionReturnURL)
	auth.SetOption(domain.OptionOffSession, true)

	if err := ex.Ledger.Create(ctx, auth); err != nil {
		return nil, fmt.Errorf("create authorize transaction: %w", err)
	}
	authResult, err := e.authorize.Execute(ctx, ex.derive(auth, nil))
	if err != nil {
		return nil, err
	}
	if err := ex.Ledger.Update(ctx, auth); err != nil {
		return nil, fmt.Errorf("update authorize transaction: %w", err)
	}

	t.Successful = auth.Successful
	t.Active = false
	t.SetResponseValue("cancel_transaction_id", cancel.ID)
	t.SetResponseValue("authorize_transaction_id", auth.ID)
	t.SetResponseValue("payment_intent_id", auth.Reference)

	e.logger.Info("Authorization replaced",
		zap.String("transaction_id", t.ID),
		zap.String("previous_transaction_id", source.ID),
		zap.String("authorize_transaction_id", auth.ID),
		zap.Bool("previous_canceled", cancel.Successful),
		zap.Bool("successful", auth.Successful))

	return &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: auth.Reference,
		Successful:      auth.Successful,
		ErrorCode:       authResult.ErrorCode,
		Message:         authResult.Message,
	}, nil
}

// cancelPrevious cancels source through its own cancel transaction.
// Whatever Stripe answers, the source is closed: it is being replaced and must
// not be captured again.
func (e *ReAuthorizeExecutor) cancelPrevious(ctx context.Context, ex *Execution, source *domain.PaymentTransaction) (*domain.PaymentTransaction, error) {
	cancel := domain.NewDependentTransaction(source, domain.ActionCancel, source.Amount)
	if err := ex.Ledger.Create(ctx, cancel); err != nil {
		return nil, fmt.Errorf("create cancel transaction: %w", err)
	}

	_, cancelErr := e.cancel.Execute(ctx, ex.derive(cancel, source))

	source.Active = false
	if err := ex.Ledger.Update(ctx, cancel); err != nil {
		return nil, fmt.Errorf("update cancel transaction: %w", err)
	}
	if cancelErr != nil {
		return nil, cancelErr
	}

	if !cancel.Successful {
		e.logger.Warn("Previous authorization could not be canceled",
			zap.String("transaction_id", cancel.ID),
			zap.String("payment_intent_id", source.Reference),
			zap.String("error", cancel.ResponseValue("error")))
	}
	return cancel, nil
}
