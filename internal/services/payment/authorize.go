package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// AuthorizeExecutor places a hold on the customer's card (manual capture)
type AuthorizeExecutor struct {
	intents *intentCreator
}

// NewAuthorizeExecutor creates an authorize executor
func NewAuthorizeExecutor(logger *zap.Logger) *AuthorizeExecutor {
	return &AuthorizeExecutor{intents: &intentCreator{logger: logger}}
}

func (e *AuthorizeExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionAuthorize
}

// Execute creates and confirms a manual-capture payment intent.
// requires_capture leaves the transaction successful and active, requires_action
// and processing leave it pending, anything else fails it.
func (e *AuthorizeExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	return e.intents.create(ctx, ex, ports.CaptureMethodManual)
}

// ChargeExecutor collects funds immediately (automatic capture)
type ChargeExecutor struct {
	intents *intentCreator
}

// NewChargeExecutor creates a charge executor
func NewChargeExecutor(logger *zap.Logger) *ChargeExecutor {
	return &ChargeExecutor{intents: &intentCreator{logger: logger}}
}

func (e *ChargeExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionCharge
}

// Execute creates and confirms an automatic-capture payment intent.
// succeeded leaves the transaction successful and inactive.
func (e *ChargeExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	return e.intents.create(ctx, ex, ports.CaptureMethodAutomatic)
}

type intentCreator struct {
	logger *zap.Logger
}

func (c *intentCreator) create(ctx context.Context, ex *Execution, captureMethod string) (*domain.ActionResult, error) {
	t := ex.Transaction

	paymentMethodID := t.Option(domain.OptionPaymentMethodID)
	if paymentMethodID == "" {
		return nil, domain.ErrPMRequired.WithDetail("transaction_id", t.ID)
	}

	req := &ports.CreatePaymentIntentRequest{
		Amount:                    domain.ToMinorUnits(t.Amount, t.Currency),
		Currency:                  t.Currency,
		PaymentMethodID:           paymentMethodID,
		CustomerID:                t.Option(domain.OptionCustomerID),
		CaptureMethod:             captureMethod,
		Confirm:                   true,
		OffSession:                t.BoolOption(domain.OptionOffSession),
		ReturnURL:                 t.Option(domain.OptionReturnURL),
		StatementDescriptorSuffix: ex.Settings.StatementDescriptorSuffix,
		IdempotencyKey:            t.ID,
		Metadata:                  intentMetadata(t),
	}

	// Off-session re-authorization needs the card attached to a customer
	if c.storesCard(ex, captureMethod) {
		customerID, err := c.ensureCustomer(ctx, ex, paymentMethodID)
		if err != nil {
			c.logger.Warn("Stripe customer creation failed",
				zap.String("transaction_id", t.ID),
				zap.Error(err))
			return failed(t, err), nil
		}
		req.CustomerID = customerID
		req.SetupFutureUsage = !req.OffSession
	}

	t.Request = map[string]interface{}{
		"amount":         req.Amount,
		"currency":       req.Currency,
		"capture_method": req.CaptureMethod,
		"payment_method": req.PaymentMethodID,
		"customer":       req.CustomerID,
		"off_session":    req.OffSession,
	}

	pi, err := ex.Gateway.CreatePaymentIntent(ctx, req)
	if err != nil {
		// Declines come back with the intent attached
		if gwErr, ok := ports.AsGatewayError(err); ok && gwErr.PaymentIntent != nil {
			t.Reference = gwErr.PaymentIntent.ID
			storeIntent(t, gwErr.PaymentIntent)
		}
		c.logger.Info("Payment intent rejected",
			zap.String("transaction_id", t.ID),
			zap.String("action", string(t.Action)),
			zap.Error(err))
		return failed(t, err), nil
	}

	return applyIntent(t, pi), nil
}

func (c *intentCreator) storesCard(ex *Execution, captureMethod string) bool {
	t := ex.Transaction
	if t.BoolOption(domain.OptionSaveForLater) {
		return true
	}
	return captureMethod == ports.CaptureMethodManual && ex.Settings.ReAuthorizationEnabled
}

// ensureCustomer returns the stored Stripe customer, creating one when missing
func (c *intentCreator) ensureCustomer(ctx context.Context, ex *Execution, paymentMethodID string) (string, error) {
	t := ex.Transaction
	if customerID := t.Option(domain.OptionCustomerID); customerID != "" {
		return customerID, nil
	}

	customer, err := ex.Gateway.CreateCustomer(ctx, &ports.CreateCustomerRequest{
		Email:           t.Option(domain.OptionCustomerEmail),
		PaymentMethodID: paymentMethodID,
		IdempotencyKey:  "customer-" + t.ID,
		Metadata:        intentMetadata(t),
	})
	if err != nil {
		return "", err
	}

	t.SetOption(domain.OptionCustomerID, customer.ID)
	return customer.ID, nil
}
