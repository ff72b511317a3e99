package payment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/internal/services/payment"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/fixtures"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type serviceSetup struct {
	service *payment.Service
	store   *mocks.TransactionStore
	gateway *mocks.MockStripeGateway
	db      *mocks.MockDB
}

func newService(t *testing.T, settings *domain.StripeSettings, seed ...*domain.PaymentTransaction) *serviceSetup {
	t.Helper()
	logger := zap.NewNop()
	store := mocks.NewTransactionStore(seed...)
	gw := &mocks.MockStripeGateway{}
	t.Cleanup(func() { gw.AssertExpectations(t) })
	db := &mocks.MockDB{}

	svc := payment.NewService(
		db,
		store,
		fixtures.NewSettingsProvider(settings),
		&mocks.GatewayFactory{Gw: gw},
		payment.NewDefaultExecutor(logger),
		logger,
	)
	return &serviceSetup{service: svc, store: store, gateway: gw, db: db}
}

func purchaseRequest() payment.ExecuteRequest {
	return payment.ExecuteRequest{
		PaymentMethod:    fixtures.PaymentMethod,
		Action:           domain.ActionPurchase,
		EntityClass:      fixtures.EntityClass,
		EntityIdentifier: fixtures.EntityIdentifier,
		Amount:           decimal.RequireFromString("25.00"),
		Currency:         "USD",
		Options: map[string]interface{}{
			domain.OptionPaymentMethodID: fixtures.StripePMID,
			domain.OptionCustomerID:      fixtures.StripeCustomerID,
		},
	}
}

func TestService_PurchasePersistsAuthorization(t *testing.T) {
	s := newService(t, fixtures.ManualSettings())
	s.gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(mocks.Intent("pi_1", ports.IntentRequiresCapture, 2500), nil).Once()

	resp, err := s.service.Execute(context.Background(), purchaseRequest())
	require.NoError(t, err)

	assert.True(t, resp.Result.Successful)
	assert.False(t, resp.Replayed)

	stored := s.store.Get(resp.Transaction.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ActionAuthorize, stored.Action)
	assert.True(t, stored.IsOpenAuthorization())
	assert.Equal(t, "pi_1", stored.Reference)
	assert.Equal(t, 1, s.db.Transactions)
}

func TestService_IdempotentReplay(t *testing.T) {
	s := newService(t, fixtures.ManualSettings())
	s.gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(mocks.Intent("pi_1", ports.IntentRequiresCapture, 2500), nil).Once()

	req := purchaseRequest()
	req.IdempotencyKey = "order-1001-attempt-1"

	first, err := s.service.Execute(context.Background(), req)
	require.NoError(t, err)

	second, err := s.service.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.True(t, second.Result.Successful)
	assert.Equal(t, "pi_1", second.Result.PaymentIntentID)
	assert.Len(t, s.store.All(), 1)
}

func TestService_IdempotencyKeyReusedForDifferentRequest(t *testing.T) {
	s := newService(t, fixtures.ManualSettings())
	s.gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(mocks.Intent("pi_1", ports.IntentRequiresCapture, 2500), nil).Once()

	req := purchaseRequest()
	req.IdempotencyKey = "order-1002"
	_, err := s.service.Execute(context.Background(), req)
	require.NoError(t, err)

	req.Amount = decimal.RequireFromString("30.00")
	_, err = s.service.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	assert.Len(t, s.store.All(), 1)
}

func TestService_CaptureClosesSource(t *testing.T) {
	auth := fixtures.OpenAuthorization("25.00")
	s := newService(t, fixtures.ManualSettings(), auth)
	s.gateway.On("CapturePaymentIntent", mock.Anything, auth.Reference, mock.Anything).
		Return(mocks.Intent(auth.Reference, ports.IntentSucceeded, 2500), nil).Once()

	resp, err := s.service.Execute(context.Background(), payment.ExecuteRequest{
		Action:              domain.ActionCapture,
		SourceTransactionID: auth.ID,
	})
	require.NoError(t, err)

	assert.True(t, resp.Result.Successful)
	assert.False(t, s.store.Get(auth.ID).Active)
	assert.True(t, s.store.Get(resp.Transaction.ID).Successful)
}

func TestService_CaptureRedirectsToReplacementAuthorization(t *testing.T) {
	oldAuth := fixtures.OpenAuthorization("25.00")
	oldAuth.Active = false
	reAuth := fixtures.NewTransaction().WithAction(domain.ActionReAuthorize).WithSource(oldAuth).WithAmount("25.00").Successful().Build()
	newAuth := fixtures.NewTransaction().WithAction(domain.ActionAuthorize).WithSource(reAuth).WithAmount("25.00").WithReference("pi_new").WithStoredCard().Open().Build()
	reAuth.CreatedAt = oldAuth.CreatedAt.Add(1)
	newAuth.CreatedAt = oldAuth.CreatedAt.Add(2)

	s := newService(t, fixtures.ManualSettings(), oldAuth, reAuth, newAuth)
	s.gateway.On("CapturePaymentIntent", mock.Anything, "pi_new", mock.Anything).
		Return(mocks.Intent("pi_new", ports.IntentSucceeded, 2500), nil).Once()

	resp, err := s.service.Execute(context.Background(), payment.ExecuteRequest{
		Action:              domain.ActionCapture,
		SourceTransactionID: oldAuth.ID,
	})
	require.NoError(t, err)

	assert.True(t, resp.Result.Successful)
	assert.Equal(t, newAuth.ID, *resp.Transaction.SourceTransactionID)
	assert.False(t, s.store.Get(newAuth.ID).Active)
}

func TestService_CancelOfCapturedAuthorizationLeavesOtherHoldsAlone(t *testing.T) {
	captured := fixtures.OpenAuthorization("25.00")
	captured.Active = false
	capture := fixtures.SuccessfulCapture(captured, "25.00")
	other := fixtures.NewTransaction().WithAction(domain.ActionAuthorize).WithAmount("40.00").WithReference("pi_other").WithStoredCard().Open().Build()
	capture.CreatedAt = captured.CreatedAt.Add(1)
	other.CreatedAt = captured.CreatedAt.Add(2)

	s := newService(t, fixtures.ManualSettings(), captured, capture, other)

	_, err := s.service.Execute(context.Background(), payment.ExecuteRequest{
		Action:              domain.ActionCancel,
		SourceTransactionID: captured.ID,
	})

	assert.Equal(t, domain.ErrorCodeTxnInvalidState, domain.GetErrorCode(err))
	assert.True(t, s.store.Get(other.ID).Active)
	s.gateway.AssertNotCalled(t, "CancelPaymentIntent", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CaptureOlderOpenAuthorization(t *testing.T) {
	older := fixtures.NewTransaction().WithAction(domain.ActionAuthorize).WithAmount("25.00").WithReference("pi_a").WithStoredCard().Open().Build()
	newer := fixtures.NewTransaction().WithAction(domain.ActionAuthorize).WithAmount("40.00").WithReference("pi_b").WithStoredCard().Open().Build()
	newer.CreatedAt = older.CreatedAt.Add(1)

	s := newService(t, fixtures.ManualSettings(), older, newer)
	s.gateway.On("CapturePaymentIntent", mock.Anything, "pi_a", mock.Anything).
		Return(mocks.Intent("pi_a", ports.IntentSucceeded, 2500), nil).Once()

	resp, err := s.service.Execute(context.Background(), payment.ExecuteRequest{
		Action:              domain.ActionCapture,
		SourceTransactionID: older.ID,
	})
	require.NoError(t, err)

	assert.True(t, resp.Result.Successful)
	assert.Equal(t, older.ID, *resp.Transaction.SourceTransactionID)
	assert.False(t, s.store.Get(older.ID).Active)
	assert.True(t, s.store.Get(newer.ID).Active)
}

func TestService_InvalidStateIsRejected(t *testing.T) {
	charge := fixtures.SuccessfulCharge("25.00")
	s := newService(t, fixtures.AutomaticSettings(), charge)

	_, err := s.service.Execute(context.Background(), payment.ExecuteRequest{
		Action:              domain.ActionCancel,
		SourceTransactionID: charge.ID,
	})

	assert.True(t, domain.IsStateError(err))
	assert.Equal(t, domain.ErrorCodeTxnInvalidState, domain.GetErrorCode(err))
}

func TestService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *payment.ExecuteRequest)
		code   domain.ErrorCode
	}{
		{name: "unknown action", mutate: func(r *payment.ExecuteRequest) { r.Action = "void" }, code: domain.ErrorCodeActionUnsupported},
		{name: "zero amount", mutate: func(r *payment.ExecuteRequest) { r.Amount = decimal.Zero }, code: domain.ErrorCodeValidationAmountInvalid},
		{name: "negative amount", mutate: func(r *payment.ExecuteRequest) { r.Amount = decimal.NewFromInt(-1) }, code: domain.ErrorCodeValidationAmountInvalid},
		{name: "missing entity", mutate: func(r *payment.ExecuteRequest) { r.EntityIdentifier = "" }, code: domain.ErrorCodeValidationMissingField},
		{name: "unknown payment method", mutate: func(r *payment.ExecuteRequest) { r.PaymentMethod = "paypal" }, code: domain.ErrorCodePMNotConfigured},
		{name: "capture without source", mutate: func(r *payment.ExecuteRequest) { r.Action = domain.ActionCapture }, code: domain.ErrorCodeTxnSourceRequired},
		{name: "missing source", mutate: func(r *payment.ExecuteRequest) {
			r.Action = domain.ActionRefund
			r.SourceTransactionID = "6f1c1f66-3f0c-4c38-9a8b-2e4a1f6b5a10"
		}, code: domain.ErrorCodeTxnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, fixtures.ManualSettings())
			req := purchaseRequest()
			tt.mutate(&req)

			_, err := s.service.Execute(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.GetErrorCode(err))
		})
	}
}

func TestService_DatabaseFailure(t *testing.T) {
	s := newService(t, fixtures.ManualSettings())
	s.db.Err = errors.New("connection refused")

	_, err := s.service.Execute(context.Background(), purchaseRequest())
	assert.Equal(t, domain.ErrorCodeDatabaseError, domain.GetErrorCode(err))
}

func TestService_ActiveAuthorization(t *testing.T) {
	auth := fixtures.OpenAuthorization("25.00")
	s := newService(t, fixtures.ManualSettings(), auth)

	got, err := s.service.ActiveAuthorization(context.Background(), fixtures.EntityClass, fixtures.EntityIdentifier)
	require.NoError(t, err)
	assert.Equal(t, auth.ID, got.ID)
	assert.Equal(t, 1, s.db.ReadOnly)
	assert.Zero(t, s.db.Transactions)

	_, err = s.service.ActiveAuthorization(context.Background(), fixtures.EntityClass, "other")
	assert.True(t, domain.IsNotFoundError(err))
}

func TestService_LogsCompletedAction(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	gw := &mocks.MockStripeGateway{}
	gw.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(mocks.Intent("pi_1", ports.IntentRequiresCapture, 2500), nil).Once()

	svc := payment.NewService(&mocks.MockDB{}, mocks.NewTransactionStore(),
		fixtures.NewSettingsProvider(fixtures.ManualSettings()), &mocks.GatewayFactory{Gw: gw},
		payment.NewDefaultExecutor(logger), logger)

	resp, err := svc.Execute(context.Background(), purchaseRequest())
	require.NoError(t, err)

	entries := logs.FilterMessage("Payment action completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, resp.Transaction.ID, entries[0].ContextMap()["transaction_id"])
	assert.Equal(t, "authorize", entries[0].ContextMap()["action"])
}

func TestService_ReadFailures(t *testing.T) {
	s := newService(t, fixtures.ManualSettings(), fixtures.OpenAuthorization("25.00"))
	s.db.Err = errors.New("connection refused")

	_, err := s.service.GetTransaction(context.Background(), "6f1c1f66-3f0c-4c38-9a8b-2e4a1f6b5a10")
	assert.Equal(t, domain.ErrorCodeDatabaseError, domain.GetErrorCode(err))

	_, err = s.service.ListTransactions(context.Background(), fixtures.EntityClass, fixtures.EntityIdentifier)
	assert.Equal(t, domain.ErrorCodeDatabaseError, domain.GetErrorCode(err))
}

func TestResultFromTransaction(t *testing.T) {
	declined := fixtures.NewTransaction().WithReference("pi_d").Failed().Build()
	declined.SetResponseValue("code", "card_declined")
	declined.SetResponseValue("decline_code", "lost_card")
	declined.SetResponseValue("error", "Your card was declined.")

	result := payment.ResultFromTransaction(declined)

	assert.False(t, result.Successful)
	assert.Equal(t, "pi_d", result.PaymentIntentID)
	assert.Equal(t, "lost_card", result.ErrorCode)
	assert.Equal(t, "Your card was declined.", result.Message)
}
