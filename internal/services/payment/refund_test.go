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

func refundOf(source *domain.PaymentTransaction, amt string) *domain.PaymentTransaction {
	return fixtures.NewTransaction().WithAction(domain.ActionRefund).WithSource(source).WithAmount(amt).Successful().Build()
}

func TestRefund_DefaultsToRemaining(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	earlier := refundOf(charge, "30.00")
	h := newHarness(t, fixtures.AutomaticSettings(), chronological(charge, earlier)...)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, decimal.Zero)

	h.gateway.On("CreateRefund", mock.Anything, mock.MatchedBy(func(r *ports.CreateRefundRequest) bool {
		return r.PaymentIntentID == charge.Reference && r.Amount == 7000 && r.IdempotencyKey == tx.ID
	})).Return(&ports.Refund{ID: "re_1", Status: ports.RefundSucceeded, PaymentIntentID: charge.Reference, Amount: 7000}, nil).Once()

	result := h.run(t, tx, charge)

	assert.True(t, result.Successful)
	assert.Equal(t, charge.Reference, result.PaymentIntentID)
	assert.Equal(t, "70.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "re_1", tx.Reference)
	assert.True(t, tx.Successful)
	assert.False(t, tx.Active)
}

func TestRefund_PendingCountsAsSuccess(t *testing.T) {
	auth := fixtures.OpenAuthorization("50.00")
	auth.Active = false
	capture := fixtures.SuccessfulCapture(auth, "50.00")
	h := newHarness(t, fixtures.ManualSettings(), chronological(auth, capture)...)
	tx := domain.NewDependentTransaction(capture, domain.ActionRefund, amount("20.00"))
	tx.SetOption(domain.OptionRefundReason, "requested_by_customer")

	h.gateway.On("CreateRefund", mock.Anything, mock.MatchedBy(func(r *ports.CreateRefundRequest) bool {
		return r.Amount == 2000 && r.Reason == "requested_by_customer"
	})).Return(&ports.Refund{ID: "re_2", Status: ports.RefundPending}, nil).Once()

	result := h.run(t, tx, capture)

	assert.True(t, result.Successful)
	assert.Equal(t, "pending", tx.ResponseValue("status"))
}

func TestRefund_RequiresActionCountsAsSuccess(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	h := newHarness(t, fixtures.AutomaticSettings(), charge)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, amount("10.00"))

	h.gateway.On("CreateRefund", mock.Anything, mock.Anything).
		Return(&ports.Refund{ID: "re_ra", Status: ports.RefundRequiresAction}, nil).Once()

	result := h.run(t, tx, charge)

	assert.True(t, result.Successful)
	assert.Equal(t, ports.RefundRequiresAction, tx.ResponseValue("status"))
}

func TestRefund_ExceedsRefundable(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	earlier := refundOf(charge, "90.00")
	h := newHarness(t, fixtures.AutomaticSettings(), chronological(charge, earlier)...)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, amount("10.01"))

	_, err := h.executor.Execute(context.Background(), h.execution(tx, charge))

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnAmountExceeded))
}

func TestRefund_NothingLeft(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	earlier := refundOf(charge, "100.00")
	h := newHarness(t, fixtures.AutomaticSettings(), chronological(charge, earlier)...)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, decimal.Zero)

	_, err := h.executor.Execute(context.Background(), h.execution(tx, charge))

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnAmountExceeded))
}

func TestRefund_AlreadyRefunded(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	h := newHarness(t, fixtures.AutomaticSettings(), charge)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, decimal.Zero)

	h.gateway.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, mocks.StripeError(ports.ErrCodeChargeAlreadyRefunded, nil)).Once()

	result := h.run(t, tx, charge)

	assert.True(t, result.Successful)
	assert.Equal(t, true, tx.Response["already_refunded"])
	assert.True(t, tx.Amount.IsZero())
}

func TestRefund_FailedStatus(t *testing.T) {
	charge := fixtures.SuccessfulCharge("100.00")
	h := newHarness(t, fixtures.AutomaticSettings(), charge)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, decimal.Zero)

	h.gateway.On("CreateRefund", mock.Anything, mock.Anything).
		Return(&ports.Refund{ID: "re_f", Status: ports.RefundFailed, FailureReason: "expired_or_canceled_card"}, nil).Once()

	result := h.run(t, tx, charge)

	assert.False(t, result.Successful)
	assert.Equal(t, string(domain.ErrorCodeGatewayDeclined), result.ErrorCode)
	assert.Equal(t, "expired_or_canceled_card", tx.ResponseValue("failure_reason"))
}

func TestRefund_RequiresCollectedFunds(t *testing.T) {
	auth := fixtures.OpenAuthorization("100.00")
	h := newHarness(t, fixtures.ManualSettings(), auth)
	tx := domain.NewDependentTransaction(auth, domain.ActionRefund, decimal.Zero)

	_, err := h.executor.Execute(context.Background(), h.execution(tx, auth))
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState))
}

func TestRefund_ZeroDecimalCurrency(t *testing.T) {
	charge := fixtures.NewTransaction().
		WithAction(domain.ActionCharge).
		WithCurrency("JPY").
		WithAmount("5000").
		WithReference("pi_jpy").
		Successful().
		Build()
	h := newHarness(t, fixtures.AutomaticSettings(), charge)
	tx := domain.NewDependentTransaction(charge, domain.ActionRefund, amount("1200"))

	h.gateway.On("CreateRefund", mock.Anything, mock.MatchedBy(func(r *ports.CreateRefundRequest) bool {
		return r.Amount == 1200
	})).Return(&ports.Refund{ID: "re_jpy", Status: ports.RefundSucceeded}, nil).Once()

	result := h.run(t, tx, charge)
	assert.True(t, result.Successful)
}
