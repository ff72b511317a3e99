package payment

import (
	"context"
	"testing"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/fixtures"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCapture_Full(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCapture, decimal.Zero)

	h.gateway.On("CapturePaymentIntent", mock.Anything, auth.Reference, mock.MatchedBy(func(r *ports.CapturePaymentIntentRequest) bool {
		return r.AmountToCapture == 10000 && r.IdempotencyKey == tx.ID
	})).Return(mocks.Intent(auth.Reference, ports.IntentSucceeded, 10000), nil).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.Equal(t, "100.00", tx.Amount.StringFixed(2))
	assert.True(t, tx.Successful)
	assert.False(t, tx.Active)
	assert.Equal(t, auth.Reference, tx.Reference)
	assert.False(t, auth.Active)
}

func TestCapture_Partial(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCapture, amount("40.00"))

	h.gateway.On("CapturePaymentIntent", mock.Anything, auth.Reference, mock.MatchedBy(func(r *ports.CapturePaymentIntentRequest) bool {
		return r.AmountToCapture == 4000
	})).Return(mocks.Intent(auth.Reference, ports.IntentSucceeded, 4000), nil).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.False(t, auth.Active)
}

func TestCapture_ExceedsAuthorization(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCapture, amount("100.01"))

	_, err := h.executor.Execute(context.Background(), h.execution(tx, auth))

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnAmountExceeded))
	assert.True(t, auth.Active)
}

func TestCapture_AlreadyCaptured(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCapture, decimal.Zero)

	h.gateway.On("CapturePaymentIntent", mock.Anything, auth.Reference, mock.Anything).
		Return(nil, mocks.StripeError(ports.ErrCodeUnexpectedState, mocks.Intent(auth.Reference, ports.IntentSucceeded, 10000))).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.True(t, tx.Successful)
	assert.False(t, auth.Active)
	assert.Equal(t, true, tx.Response["already_captured"])
}

func TestCapture_UnexpectedStateCanceledFails(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCapture, decimal.Zero)

	h.gateway.On("CapturePaymentIntent", mock.Anything, auth.Reference, mock.Anything).
		Return(nil, mocks.StripeError(ports.ErrCodeUnexpectedState, mocks.Intent(auth.Reference, ports.IntentCanceled, 10000))).Once()

	result := h.run(t, tx, auth)

	assert.False(t, result.Successful)
	assert.Equal(t, ports.ErrCodeUnexpectedState, result.ErrorCode)
	assert.False(t, tx.Successful)
	assert.True(t, auth.Active)
}

func TestCapture_RequiresOpenAuthorization(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	h := newHarness(t, fixtures.AutomaticSettings(), charge)
	tx := domain.NewDependentTransaction(charge, domain.ActionCapture, decimal.Zero)

	_, err := h.executor.Execute(context.Background(), h.execution(tx, charge))
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState))

	_, err = h.executor.Execute(context.Background(), h.execution(tx, nil))
	assert.ErrorIs(t, err, domain.ErrTxnSourceRequired)
}

func TestCancel_Succeeded(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCancel, decimal.Zero)

	h.gateway.On("CancelPaymentIntent", mock.Anything, auth.Reference, mock.MatchedBy(func(r *ports.CancelPaymentIntentRequest) bool {
		return r.Reason == DefaultCancelReason && r.IdempotencyKey == tx.ID
	})).Return(mocks.Intent(auth.Reference, ports.IntentCanceled, 10000), nil).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.True(t, tx.Successful)
	assert.False(t, tx.Active)
	assert.Equal(t, "100.00", tx.Amount.StringFixed(2))
	assert.False(t, auth.Active)
}

func TestCancel_Reason(t *testing.T) {
	tests := []struct {
		given string
		want  string
	}{
		{given: "fraudulent", want: "fraudulent"},
		{given: "abandoned", want: "abandoned"},
		{given: "changed my mind", want: DefaultCancelReason},
	}

	for _, tt := range tests {
		t.Run(tt.given, func(t *testing.T) {
			auth := fixtures.OpenAuthorization("10.00")
			h := newHarness(t, fixtures.ManualSettings(), auth)
			tx := domain.NewDependentTransaction(auth, domain.ActionCancel, decimal.Zero)
			tx.SetOption(domain.OptionCancelReason, tt.given)

			h.gateway.On("CancelPaymentIntent", mock.Anything, auth.Reference, mock.MatchedBy(func(r *ports.CancelPaymentIntentRequest) bool {
				return r.Reason == tt.want
			})).Return(mocks.Intent(auth.Reference, ports.IntentCanceled, 1000), nil).Once()

			h.run(t, tx, auth)
		})
	}
}

func TestCancel_PendingAuthorization(t *testing.T) {
	auth := fixtures.NewTransaction().WithAction(domain.ActionAuthorize).WithReference("pi_3ds").Pending().Build()
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCancel, decimal.Zero)

	h.gateway.On("CancelPaymentIntent", mock.Anything, "pi_3ds", mock.Anything).
		Return(mocks.Intent("pi_3ds", ports.IntentCanceled, 10000), nil).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.False(t, auth.Active)
}

func TestCancel_AlreadyCanceled(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCancel, decimal.Zero)

	h.gateway.On("CancelPaymentIntent", mock.Anything, auth.Reference, mock.Anything).
		Return(nil, mocks.StripeError(ports.ErrCodeUnexpectedState, mocks.Intent(auth.Reference, ports.IntentCanceled, 10000))).Once()

	result := h.run(t, tx, auth)

	assert.True(t, result.Successful)
	assert.False(t, auth.Active)
	assert.Equal(t, true, tx.Response["already_canceled"])
}

func TestCancel_GatewayFailureKeepsAuthorization(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionCancel, decimal.Zero)

	h.gateway.On("CancelPaymentIntent", mock.Anything, auth.Reference, mock.Anything).
		Return(nil, &ports.GatewayError{Type: "api_connection_error", Message: "connection reset", Retriable: true}).Once()

	result := h.run(t, tx, auth)

	assert.False(t, result.Successful)
	assert.False(t, tx.Successful)
	assert.True(t, auth.Active)
	assert.Equal(t, "connection reset", tx.ResponseValue("error"))
}
