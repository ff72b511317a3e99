package payment

import (
	"context"
	"fmt"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// ActionExecutor performs one payment action against Stripe
type ActionExecutor interface {
	Supports(action domain.Action) bool
	Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error)
}

// Ledger gives executors access to the transactions of the current database transaction
type Ledger interface {
	Create(ctx context.Context, t *domain.PaymentTransaction) error
	Update(ctx context.Context, t *domain.PaymentTransaction) error
	// History returns every transaction of t's payable entity, oldest first
	History(ctx context.Context, t *domain.PaymentTransaction) ([]*domain.PaymentTransaction, error)
}

// Execution is the input of one executor run.
// Executors mutate Transaction and Source in place; the caller persists both.
type Execution struct {
	Transaction *domain.PaymentTransaction
	Source      *domain.PaymentTransaction
	Settings    *domain.StripeSettings
	Gateway     ports.StripeGateway
	Ledger      Ledger
}

// derive returns an execution for another transaction of the same integration
func (ex *Execution) derive(t, source *domain.PaymentTransaction) *Execution {
	return &Execution{
		Transaction: t,
		Source:      source,
		Settings:    ex.Settings,
		Gateway:     ex.Gateway,
		Ledger:      ex.Ledger,
	}
}

func (ex *Execution) requireSource() (*domain.PaymentTransaction, error) {
	if ex.Source == nil {
		return nil, domain.ErrTxnSourceRequired.WithDetail("action", string(ex.Transaction.Action))
	}
	return ex.Source, nil
}

// txLedger binds a repository to a database transaction
type txLedger struct {
	repo ports.TransactionRepository
	db   ports.DBTX
}

func (l *txLedger) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	return l.repo.Create(ctx, l.db, t)
}

func (l *txLedger) Update(ctx context.Context, t *domain.PaymentTransaction) error {
	return l.repo.Update(ctx, l.db, t)
}

func (l *txLedger) History(ctx context.Context, t *domain.PaymentTransaction) ([]*domain.PaymentTransaction, error) {
	return l.repo.ListByEntity(ctx, l.db, t.EntityClass, t.EntityIdentifier)
}

// ledgerState replays the entity history of t
func ledgerState(ctx context.Context, ex *Execution, t *domain.PaymentTransaction) (*LedgerState, error) {
	history, err := ex.Ledger.History(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("load transaction history: %w", err)
	}
	return ComputeLedgerState(history), nil
}

// intentMetadata tags Stripe objects so webhooks can be traced back to the ledger
func intentMetadata(t *domain.PaymentTransaction) map[string]string {
	return map[string]string{
		"transaction_id":    t.ID,
		"payment_method":    t.PaymentMethod,
		"entity_class":      t.EntityClass,
		"entity_identifier": t.EntityIdentifier,
	}
}

// intentFlags maps a payment intent status onto the ledger flags of the
// authorize or charge transaction that created it
func intentFlags(action domain.Action, status ports.PaymentIntentStatus) (successful, active bool) {
	switch status {
	case ports.IntentRequiresAction, ports.IntentProcessing, ports.IntentRequiresConfirmation:
		return false, true
	case ports.IntentRequiresCapture:
		return action == domain.ActionAuthorize, action == domain.ActionAuthorize
	case ports.IntentSucceeded:
		return action == domain.ActionCharge, false
	default:
		return false, false
	}
}

// applyIntent stores the intent on an authorize or charge transaction and
// sets its flags from the intent status
func applyIntent(t *domain.PaymentTransaction, pi *ports.PaymentIntent) *domain.ActionResult {
	t.Reference = pi.ID
	t.Successful, t.Active = intentFlags(t.Action, pi.Status)
	storeIntent(t, pi)

	result := &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: pi.ID,
		Successful:      t.Successful,
	}
	if pi.Status == ports.IntentRequiresAction {
		result.RequiresAction = true
		result.ClientSecret = pi.ClientSecret
	}
	if pi.LastPaymentError != nil {
		recordGatewayError(t, pi.LastPaymentError)
		result.ErrorCode = pi.LastPaymentError.PaymentError().Code
		result.Message = pi.LastPaymentError.PaymentError().Message
	}
	return result
}

func storeIntent(t *domain.PaymentTransaction, pi *ports.PaymentIntent) {
	t.SetResponseValue("payment_intent_id", pi.ID)
	t.SetResponseValue("status", string(pi.Status))
	if pi.LatestChargeID != "" {
		t.SetResponseValue("charge_id", pi.LatestChargeID)
	}
	if pi.CustomerID != "" {
		t.SetResponseValue("customer_id", pi.CustomerID)
	}
	if pi.PaymentMethodID != "" {
		t.SetResponseValue("payment_method_id", pi.PaymentMethodID)
	}
}

// recordGatewayError stores a Stripe failure on t
func recordGatewayError(t *domain.PaymentTransaction, err error) {
	gwErr, ok := ports.AsGatewayError(err)
	if !ok {
		t.SetResponseValue("error", err.Error())
		return
	}
	t.SetResponseValue("error", gwErr.Message)
	t.SetResponseValue("error_type", gwErr.Type)
	if gwErr.Code != "" {
		t.SetResponseValue("code", gwErr.Code)
	}
	if gwErr.DeclineCode != "" {
		t.SetResponseValue("decline_code", gwErr.DeclineCode)
	}
	if gwErr.RequestID != "" {
		t.SetResponseValue("request_id", gwErr.RequestID)
	}
}

// failed marks t unsuccessful and inactive after a gateway failure
func failed(t *domain.PaymentTransaction, err error) *domain.ActionResult {
	t.Successful = false
	t.Active = false
	recordGatewayError(t, err)

	result := &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: t.Reference,
		ErrorCode:       string(domain.ErrorCodeGatewayError),
		Message:         err.Error(),
	}
	if gwErr, ok := ports.AsGatewayError(err); ok {
		pe := gwErr.PaymentError()
		result.ErrorCode = pe.Code
		result.Message = pe.Message
	}
	return result
}

// succeeded marks t successful and inactive
func succeeded(t *domain.PaymentTransaction) *domain.ActionResult {
	t.Successful = true
	t.Active = false
	return &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: t.Reference,
		Successful:      true,
	}
}

// unexpectedState reports whether err says the intent already reached want
func unexpectedState(err error, want ports.PaymentIntentStatus) bool {
	gwErr, ok := ports.AsGatewayError(err)
	return ok && gwErr.Code == ports.ErrCodeUnexpectedState && gwErr.IntentStatus() == want
}
