package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExecuteRequest asks for one payment action
type ExecuteRequest struct {
	Options             map[string]interface{}
	PaymentMethod       string
	Action              domain.Action
	SourceTransactionID string
	EntityClass         string
	EntityIdentifier    string
	Currency            string
	IdempotencyKey      string
	Amount              decimal.Decimal
}

// ExecuteResponse is the outcome of an executed action
type ExecuteResponse struct {
	Result      *domain.ActionResult
	Transaction *domain.PaymentTransaction
	// Replayed is true when the idempotency key matched an earlier request
	Replayed bool
}

// Service runs payment actions against Stripe and keeps the ledger
type Service struct {
	db       ports.DBPort
	txRepo   ports.TransactionRepository
	settings ports.SettingsProvider
	gateways ports.StripeGatewayFactory
	executor ActionExecutor
	logger   *zap.Logger
}

// NewService creates a new payment service
func NewService(
	db ports.DBPort,
	txRepo ports.TransactionRepository,
	settings ports.SettingsProvider,
	gateways ports.StripeGatewayFactory,
	executor ActionExecutor,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:       db,
		txRepo:   txRepo,
		settings: settings,
		gateways: gateways,
		executor: executor,
		logger:   logger,
	}
}

// Execute validates the request, builds the transaction and runs it
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	if !req.Action.Valid() {
		return nil, domain.ErrActionUnsupported.WithDetail("action", string(req.Action))
	}
	if req.Amount.IsNegative() {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount.String())
	}

	// Check idempotency
	if req.IdempotencyKey != "" {
		existing, err := s.txRepo.GetByIdempotencyKey(ctx, nil, req.IdempotencyKey)
		if err == nil && existing != nil {
			if !sameRequest(existing, req) {
				return nil, domain.ErrIdempotencyConflict.WithDetail("idempotency_key", req.IdempotencyKey)
			}
			s.logger.Info("Returning existing transaction for idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("transaction_id", existing.ID))
			return &ExecuteResponse{
				Result:      ResultFromTransaction(existing),
				Transaction: existing,
				Replayed:    true,
			}, nil
		}
		if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "idempotency lookup failed", err)
		}
	}

	t, err := s.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		t.IdempotencyKey = &key
	}
	for k, v := range req.Options {
		t.SetOption(k, v)
	}

	result, err := s.ExecuteTransaction(ctx, t)
	if err != nil {
		return nil, err
	}
	return &ExecuteResponse{Result: result, Transaction: t}, nil
}

// sameRequest reports whether a stored transaction could have come from req.
// Purchase is stored under the action it resolved to.
func sameRequest(t *domain.PaymentTransaction, req ExecuteRequest) bool {
	if req.PaymentMethod != "" && req.PaymentMethod != t.PaymentMethod {
		return false
	}
	if req.Action == domain.ActionPurchase {
		if t.Action != domain.ActionAuthorize && t.Action != domain.ActionCharge {
			return false
		}
	} else if req.Action != t.Action {
		return false
	}
	if req.SourceTransactionID != "" && (t.SourceTransactionID == nil || *t.SourceTransactionID != req.SourceTransactionID) {
		return false
	}
	if req.Amount.IsPositive() && !req.Amount.Equal(t.Amount) {
		return false
	}
	return true
}

func (s *Service) buildTransaction(ctx context.Context, req ExecuteRequest) (*domain.PaymentTransaction, error) {
	switch req.Action {
	case domain.ActionPurchase, domain.ActionAuthorize, domain.ActionCharge:
		if req.PaymentMethod == "" {
			return nil, domain.ErrValidationMissingField.WithDetail("field", "payment_method")
		}
		if req.EntityClass == "" || req.EntityIdentifier == "" {
			return nil, domain.ErrValidationMissingField.WithDetail("field", "entity")
		}
		if !req.Amount.IsPositive() {
			return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount.String())
		}
		if len(req.Currency) != 3 {
			return nil, domain.ErrValidationFailed.WithDetail("currency", req.Currency)
		}
		t := domain.NewTransaction(req.PaymentMethod, req.Action, req.Amount, req.Currency)
		t.EntityClass = req.EntityClass
		t.EntityIdentifier = req.EntityIdentifier
		return t, nil

	default:
		if req.SourceTransactionID == "" {
			return nil, domain.ErrTxnSourceRequired.WithDetail("action", string(req.Action))
		}
		source, err := s.GetTransaction(ctx, req.SourceTransactionID)
		if err != nil {
			return nil, err
		}
		if req.PaymentMethod != "" && req.PaymentMethod != source.PaymentMethod {
			return nil, domain.ErrValidationFailed.WithDetail("payment_method", req.PaymentMethod)
		}
		return domain.NewDependentTransaction(source, req.Action, req.Amount), nil
	}
}

// ExecuteTransaction runs a prepared transaction.
// The source row stays locked while Stripe is called, so two actions on the
// same authorization cannot interleave.
func (s *Service) ExecuteTransaction(ctx context.Context, t *domain.PaymentTransaction) (*domain.ActionResult, error) {
	settings, err := s.settings.Get(t.PaymentMethod)
	if err != nil {
		return nil, err
	}
	gateway := s.gateways.Gateway(settings)
	start := time.Now()
	requested := t.Action

	var result *domain.ActionResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		source, err := s.lockSource(ctx, tx, t)
		if err != nil {
			return err
		}

		if err := s.txRepo.Create(ctx, tx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		result, err = s.executor.Execute(ctx, &Execution{
			Transaction: t,
			Source:      source,
			Settings:    settings,
			Gateway:     gateway,
			Ledger:      &txLedger{repo: s.txRepo, db: tx},
		})
		if err != nil {
			return err
		}

		if err := s.txRepo.Update(ctx, tx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if source != nil {
			if err := s.txRepo.Update(ctx, tx, source); err != nil {
				return fmt.Errorf("update source transaction: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		s.logger.Error("Payment action failed",
			zap.String("transaction_id", t.ID),
			zap.String("action", string(requested)),
			zap.String("payment_method", t.PaymentMethod),
			zap.Error(err))
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "payment action could not be recorded", err)
	}

	status := "failed"
	switch {
	case result.Successful:
		status = "successful"
	case t.IsPending():
		status = "pending"
	}
	observability.RecordPaymentTransaction(t.PaymentMethod, string(t.Action), status,
		domain.ToMinorUnits(t.Amount, t.Currency), t.Currency, time.Since(start).Seconds())

	s.logger.Info("Payment action completed",
		zap.String("transaction_id", t.ID),
		zap.String("action", string(t.Action)),
		zap.String("payment_method", t.PaymentMethod),
		zap.String("reference", t.Reference),
		zap.Bool("successful", t.Successful),
		zap.Bool("active", t.Active))

	return result, nil
}

// lockSource loads and locks the source of t. A capture or cancel naming an
// authorization that a re-authorization replaced is redirected to the
// authorization now holding its funds.
func (s *Service) lockSource(ctx context.Context, tx pgx.Tx, t *domain.PaymentTransaction) (*domain.PaymentTransaction, error) {
	if !t.HasSource() {
		return nil, nil
	}

	source, err := s.getForUpdate(ctx, tx, *t.SourceTransactionID)
	if err != nil {
		return nil, err
	}

	if source.Action != domain.ActionAuthorize || source.Active ||
		(t.Action != domain.ActionCapture && t.Action != domain.ActionCancel) {
		return source, nil
	}

	history, err := s.txRepo.ListByEntity(ctx, tx, source.EntityClass, source.EntityIdentifier)
	if err != nil {
		return nil, fmt.Errorf("load transaction history: %w", err)
	}
	replacementID, ok := ComputeLedgerState(history).Replacement(source.ID)
	if !ok {
		return source, nil
	}

	current, err := s.getForUpdate(ctx, tx, replacementID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Redirecting to replacement authorization",
		zap.String("transaction_id", t.ID),
		zap.String("requested_source_id", source.ID),
		zap.String("source_id", current.ID))

	id := current.ID
	t.SourceTransactionID = &id
	return current, nil
}

func (s *Service) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.PaymentTransaction, error) {
	t, err := s.txRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", id)
		}
		return nil, fmt.Errorf("lock transaction %s: %w", id, err)
	}
	return t, nil
}

// GetTransaction returns one transaction
func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.PaymentTransaction, error) {
	var t *domain.PaymentTransaction
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		t, err = s.txRepo.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", id)
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction", err)
	}
	return t, nil
}

// ListTransactions returns the history of a payable entity, oldest first
func (s *Service) ListTransactions(ctx context.Context, entityClass, entityIdentifier string) ([]*domain.PaymentTransaction, error) {
	if entityClass == "" || entityIdentifier == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "entity")
	}
	var txs []*domain.PaymentTransaction
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		txs, err = s.txRepo.ListByEntity(ctx, tx, entityClass, entityIdentifier)
		return err
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list transactions", err)
	}
	return txs, nil
}

// ActiveAuthorization returns the authorization currently holding funds for an entity
func (s *Service) ActiveAuthorization(ctx context.Context, entityClass, entityIdentifier string) (*domain.PaymentTransaction, error) {
	txs, err := s.ListTransactions(ctx, entityClass, entityIdentifier)
	if err != nil {
		return nil, err
	}
	state := ComputeLedgerState(txs)
	if state.ActiveAuthorizationID == nil {
		return nil, domain.ErrTxnNotFound.WithDetail("reason", "no active authorization")
	}
	for _, t := range txs {
		if t.ID == *state.ActiveAuthorizationID {
			return t, nil
		}
	}
	return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", *state.ActiveAuthorizationID)
}

// ResultFromTransaction rebuilds the action result of a stored transaction
func ResultFromTransaction(t *domain.PaymentTransaction) *domain.ActionResult {
	result := &domain.ActionResult{
		TransactionID:   t.ID,
		PaymentIntentID: t.ResponseValue("payment_intent_id"),
		Successful:      t.Successful,
		RequiresAction:  t.IsPending() && t.ResponseValue("status") == string(ports.IntentRequiresAction),
	}
	if result.PaymentIntentID == "" {
		result.PaymentIntentID = t.Reference
	}
	if !t.Successful {
		result.ErrorCode = t.ResponseValue("decline_code")
		if result.ErrorCode == "" {
			result.ErrorCode = t.ResponseValue("code")
		}
		result.Message = t.ResponseValue("error")
	}
	return result
}
