package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	pkgerrors "github.com/kevin07696/stripe-payment-service/pkg/errors"
)

// PaymentIntentStatus mirrors the Stripe payment intent lifecycle
type PaymentIntentStatus string

const (
	IntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	IntentRequiresAction        PaymentIntentStatus = "requires_action"
	IntentProcessing            PaymentIntentStatus = "processing"
	IntentRequiresCapture       PaymentIntentStatus = "requires_capture"
	IntentCanceled              PaymentIntentStatus = "canceled"
	IntentSucceeded             PaymentIntentStatus = "succeeded"
)

// Refund statuses reported by Stripe
const (
	RefundSucceeded      = "succeeded"
	RefundPending        = "pending"
	RefundRequiresAction = "requires_action"
	RefundFailed         = "failed"
	RefundCanceled       = "canceled"
)

// Capture methods understood by Stripe
const (
	CaptureMethodManual    = "manual"
	CaptureMethodAutomatic = "automatic"
)

// Gateway error codes the executors react to
const (
	ErrCodeUnexpectedState       = "payment_intent_unexpected_state"
	ErrCodeChargeAlreadyRefunded = "charge_already_refunded"
	ErrCodeAuthenticationNeeded  = "authentication_required"
)

// PaymentIntent is the subset of a Stripe payment intent the ledger needs
type PaymentIntent struct {
	Metadata         map[string]string
	LastPaymentError *GatewayError
	ID               string
	Status           PaymentIntentStatus
	Currency         string
	ClientSecret     string
	CustomerID       string
	PaymentMethodID  string
	LatestChargeID   string
	CaptureMethod    string
	Amount           int64
	AmountCapturable int64
	AmountReceived   int64
}

// Refund is the subset of a Stripe refund the ledger needs
type Refund struct {
	Metadata        map[string]string
	ID              string
	PaymentIntentID string
	ChargeID        string
	Status          string
	Reason          string
	Currency        string
	FailureReason   string
	Amount          int64
}

// Customer is a Stripe customer
type Customer struct {
	ID    string
	Email string
}

// CreatePaymentIntentRequest describes a new payment intent
type CreatePaymentIntentRequest struct {
	Metadata                  map[string]string
	IdempotencyKey            string
	Currency                  string
	PaymentMethodID           string
	CustomerID                string
	CaptureMethod             string
	ReturnURL                 string
	StatementDescriptorSuffix string
	Description               string
	Amount                    int64
	Confirm                   bool
	OffSession                bool
	SetupFutureUsage          bool
}

// ConfirmPaymentIntentRequest confirms an existing intent
type ConfirmPaymentIntentRequest struct {
	PaymentMethodID string
	ReturnURL       string
	IdempotencyKey  string
}

// CapturePaymentIntentRequest captures an authorized intent
type CapturePaymentIntentRequest struct {
	IdempotencyKey  string
	AmountToCapture int64
}

// CancelPaymentIntentRequest cancels an intent
type CancelPaymentIntentRequest struct {
	Reason         string
	IdempotencyKey string
}

// CreateRefundRequest refunds an intent, fully when Amount is zero
type CreateRefundRequest struct {
	Metadata        map[string]string
	PaymentIntentID string
	Reason          string
	IdempotencyKey  string
	Amount          int64
}

// CreateCustomerRequest creates a Stripe customer for off-session reuse
type CreateCustomerRequest struct {
	Metadata        map[string]string
	Email           string
	Name            string
	PaymentMethodID string
	IdempotencyKey  string
}

// StripeGateway is a Stripe API client bound to one integration's secret key
type StripeGateway interface {
	CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentRequest) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id string, req *ConfirmPaymentIntentRequest) (*PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, id string, req *CapturePaymentIntentRequest) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string, req *CancelPaymentIntentRequest) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, req *CreateRefundRequest) (*Refund, error)
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error)
}

// StripeGatewayFactory builds gateways for configured integrations
type StripeGatewayFactory interface {
	Gateway(settings *domain.StripeSettings) StripeGateway
}

// SettingsProvider resolves integration settings by payment method identifier
type SettingsProvider interface {
	Get(paymentMethod string) (*domain.StripeSettings, error)
	All() []*domain.StripeSettings
}

// GatewayError is a failure reported by the Stripe API
type GatewayError struct {
	Err           error
	PaymentIntent *PaymentIntent
	Type          string
	Code          string
	DeclineCode   string
	Message       string
	RequestID     string
	UserMessage   string
	Category      pkgerrors.ErrorCategory
	HTTPStatus    int
	Retriable     bool
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying SDK error
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IntentStatus returns the status of the payment intent attached to the error, if any
func (e *GatewayError) IntentStatus() PaymentIntentStatus {
	if e.PaymentIntent == nil {
		return ""
	}
	return e.PaymentIntent.Status
}

// PaymentError converts the failure into the API error shape
func (e *GatewayError) PaymentError() *pkgerrors.PaymentError {
	code := e.DeclineCode
	if code == "" {
		code = e.Code
	}
	if code == "" {
		code = e.Type
	}
	message := e.UserMessage
	if message == "" {
		message = e.Message
	}
	pe := pkgerrors.NewPaymentError(code, message, e.Category, e.Retriable)
	pe.GatewayMessage = e.Message
	if e.RequestID != "" {
		pe.Details["request_id"] = e.RequestID
	}
	return pe
}

// AsGatewayError extracts a GatewayError from err
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
