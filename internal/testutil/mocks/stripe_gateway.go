package mocks

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockStripeGateway mocks ports.StripeGateway
type MockStripeGateway struct {
	mock.Mock
}

func (m *MockStripeGateway) CreatePaymentIntent(ctx context.Context, req *ports.CreatePaymentIntentRequest) (*ports.PaymentIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*ports.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) ConfirmPaymentIntent(ctx context.Context, id string, req *ports.ConfirmPaymentIntentRequest) (*ports.PaymentIntent, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) CapturePaymentIntent(ctx context.Context, id string, req *ports.CapturePaymentIntentRequest) (*ports.PaymentIntent, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) CancelPaymentIntent(ctx context.Context, id string, req *ports.CancelPaymentIntentRequest) (*ports.PaymentIntent, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) CreateRefund(ctx context.Context, req *ports.CreateRefundRequest) (*ports.Refund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Refund), args.Error(1)
}

func (m *MockStripeGateway) CreateCustomer(ctx context.Context, req *ports.CreateCustomerRequest) (*ports.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Customer), args.Error(1)
}

// GatewayFactory hands out the same gateway for every integration
type GatewayFactory struct {
	Gw ports.StripeGateway
}

func (f *GatewayFactory) Gateway(*domain.StripeSettings) ports.StripeGateway {
	return f.Gw
}

// Intent builds a payment intent with the given status
func Intent(id string, status ports.PaymentIntentStatus, amount int64) *ports.PaymentIntent {
	return &ports.PaymentIntent{
		ID:               id,
		Status:           status,
		Amount:           amount,
		AmountCapturable: amount,
		Currency:         "USD",
		ClientSecret:     id + "_secret_test",
	}
}

// StripeError builds a gateway error as the Stripe adapter reports it
func StripeError(code string, intent *ports.PaymentIntent) *ports.GatewayError {
	return &ports.GatewayError{
		Type:          "invalid_request_error",
		Code:          code,
		Message:       "stripe rejected the request: " + code,
		HTTPStatus:    400,
		PaymentIntent: intent,
	}
}

// CardDeclined builds a declined card error
func CardDeclined(declineCode string) *ports.GatewayError {
	return &ports.GatewayError{
		Type:        "card_error",
		Code:        "card_declined",
		DeclineCode: declineCode,
		Message:     "Your card was declined.",
		UserMessage: "Your card was declined.",
		HTTPStatus:  402,
	}
}
