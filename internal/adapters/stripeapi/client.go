package stripeapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/pkg/httpclient"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"go.uber.org/zap"
)

// Config holds the SDK backend settings shared by every integration
type Config struct {
	// BackendURL overrides api.stripe.com (stripe-mock, tests)
	BackendURL string

	// MaxNetworkRetries is handed to the SDK, which owns retry and backoff
	MaxNetworkRetries int64

	// HTTPClient is optional; the SDK default is used when nil
	HTTPClient *http.Client
}

// DefaultConfig returns the SDK defaults used in production
func DefaultConfig() *Config {
	return &Config{
		MaxNetworkRetries: 2,
		HTTPClient:        httpclient.New(httpclient.StripeConfig(), resilience.DefaultTimeoutConfig().StripeAPI),
	}
}

// Client implements ports.StripeGateway on top of stripe-go
type Client struct {
	intents   *paymentintent.Client
	refunds   *refund.Client
	customers *customer.Client
	logger    *zap.Logger
}

// NewClient creates a Stripe client bound to one secret key
func NewClient(secretKey string, cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	backendConfig := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.HTTPClient != nil {
		backendConfig.HTTPClient = cfg.HTTPClient
	}
	if cfg.BackendURL != "" {
		backendConfig.URL = stripe.String(cfg.BackendURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &Client{
		intents:   &paymentintent.Client{B: backend, Key: secretKey},
		refunds:   &refund.Client{B: backend, Key: secretKey},
		customers: &customer.Client{B: backend, Key: secretKey},
		logger:    logger,
	}
}

// CreatePaymentIntent creates (and optionally confirms) a payment intent
func (c *Client) CreatePaymentIntent(ctx context.Context, req *ports.CreatePaymentIntentRequest) (*ports.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		CaptureMethod: stripe.String(req.CaptureMethod),
		Confirm:       stripe.Bool(req.Confirm),
	}
	params.Context = ctx

	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.StatementDescriptorSuffix != "" {
		params.StatementDescriptorSuffix = stripe.String(req.StatementDescriptorSuffix)
	}
	if req.OffSession {
		params.OffSession = stripe.Bool(true)
	}
	if req.SetupFutureUsage {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	} else if req.Confirm {
		// Server-side confirmation without a return URL cannot follow redirects
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	start := time.Now()
	pi, err := c.intents.New(params)
	if err != nil {
		return nil, c.fail("create_payment_intent", start, err)
	}
	c.ok("create_payment_intent", start)

	return toPaymentIntent(pi), nil
}

// RetrievePaymentIntent fetches the current state of an intent
func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*ports.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	start := time.Now()
	pi, err := c.intents.Get(id, params)
	if err != nil {
		return nil, c.fail("retrieve_payment_intent", start, err)
	}
	c.ok("retrieve_payment_intent", start)

	return toPaymentIntent(pi), nil
}

// ConfirmPaymentIntent confirms an intent waiting for confirmation
func (c *Client) ConfirmPaymentIntent(ctx context.Context, id string, req *ports.ConfirmPaymentIntentRequest) (*ports.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	if req != nil {
		if req.PaymentMethodID != "" {
			params.PaymentMethod = stripe.String(req.PaymentMethodID)
		}
		if req.ReturnURL != "" {
			params.ReturnURL = stripe.String(req.ReturnURL)
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
	}

	start := time.Now()
	pi, err := c.intents.Confirm(id, params)
	if err != nil {
		return nil, c.fail("confirm_payment_intent", start, err)
	}
	c.ok("confirm_payment_intent", start)

	return toPaymentIntent(pi), nil
}

// CapturePaymentIntent captures an authorized intent, partially when AmountToCapture is set
func (c *Client) CapturePaymentIntent(ctx context.Context, id string, req *ports.CapturePaymentIntentRequest) (*ports.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if req != nil {
		if req.AmountToCapture > 0 {
			params.AmountToCapture = stripe.Int64(req.AmountToCapture)
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
	}

	start := time.Now()
	pi, err := c.intents.Capture(id, params)
	if err != nil {
		return nil, c.fail("capture_payment_intent", start, err)
	}
	c.ok("capture_payment_intent", start)

	return toPaymentIntent(pi), nil
}

// CancelPaymentIntent cancels an intent and releases its authorization
func (c *Client) CancelPaymentIntent(ctx context.Context, id string, req *ports.CancelPaymentIntentRequest) (*ports.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if req != nil {
		if req.Reason != "" {
			params.CancellationReason = stripe.String(req.Reason)
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
	}

	start := time.Now()
	pi, err := c.intents.Cancel(id, params)
	if err != nil {
		return nil, c.fail("cancel_payment_intent", start, err)
	}
	c.ok("cancel_payment_intent", start)

	return toPaymentIntent(pi), nil
}

// CreateRefund refunds a captured intent
func (c *Client) CreateRefund(ctx context.Context, req *ports.CreateRefundRequest) (*ports.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
	}
	params.Context = ctx

	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	start := time.Now()
	r, err := c.refunds.New(params)
	if err != nil {
		return nil, c.fail("create_refund", start, err)
	}
	c.ok("create_refund", start)

	return toRefund(r), nil
}

// CreateCustomer creates a customer the payment method can be attached to
func (c *Client) CreateCustomer(ctx context.Context, req *ports.CreateCustomerRequest) (*ports.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	start := time.Now()
	cus, err := c.customers.New(params)
	if err != nil {
		return nil, c.fail("create_customer", start, err)
	}
	c.ok("create_customer", start)

	return &ports.Customer{ID: cus.ID, Email: cus.Email}, nil
}

func (c *Client) ok(operation string, start time.Time) {
	observability.RecordStripeRequest(operation, "ok", time.Since(start).Seconds())
}

func (c *Client) fail(operation string, start time.Time, err error) error {
	gwErr := toGatewayError(err)
	observability.RecordStripeRequest(operation, gwErr.Type, time.Since(start).Seconds())

	c.logger.Warn("Stripe API request failed",
		zap.String("operation", operation),
		zap.String("type", gwErr.Type),
		zap.String("code", gwErr.Code),
		zap.String("decline_code", gwErr.DeclineCode),
		zap.String("request_id", gwErr.RequestID),
		zap.Int("http_status", gwErr.HTTPStatus),
	)

	return gwErr
}
