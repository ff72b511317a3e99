package stripeapi

import (
	"testing"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return signed.Header, signed.Payload
}

func TestWebhookVerifier_PaymentIntentEvent(t *testing.T) {
	header, body := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.canceled",
		"created": 1700000000,
		"livemode": false,
		"api_version": "2020-08-27",
		"data": {"object": {
			"id": "pi_123",
			"object": "payment_intent",
			"status": "canceled",
			"amount": 1099,
			"currency": "usd"
		}}
	}`)

	event, err := NewWebhookVerifier(0).ConstructEvent(body, header, testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, ports.EventPaymentIntentCanceled, event.Type)
	assert.Equal(t, "payment_intent", event.ObjectType)
	require.NotNil(t, event.PaymentIntent)
	assert.Nil(t, event.Refund)
	assert.Equal(t, "pi_123", event.PaymentIntent.ID)
	assert.Equal(t, ports.IntentCanceled, event.PaymentIntent.Status)
	assert.Equal(t, "USD", event.PaymentIntent.Currency)
	assert.Equal(t, int64(1700000000), event.Created.Unix())
}

func TestWebhookVerifier_RefundEvent(t *testing.T) {
	header, body := signedPayload(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "refund.updated",
		"created": 1700000000,
		"data": {"object": {
			"id": "re_1",
			"object": "refund",
			"status": "succeeded",
			"amount": 500,
			"currency": "eur",
			"payment_intent": "pi_123"
		}}
	}`)

	event, err := NewWebhookVerifier(0).ConstructEvent(body, header, testWebhookSecret)
	require.NoError(t, err)

	require.NotNil(t, event.Refund)
	assert.Equal(t, "re_1", event.Refund.ID)
	assert.Equal(t, "pi_123", event.Refund.PaymentIntentID)
	assert.Equal(t, ports.RefundSucceeded, event.Refund.Status)
	assert.Equal(t, int64(500), event.Refund.Amount)
	assert.Equal(t, "EUR", event.Refund.Currency)
}

func TestWebhookVerifier_RejectsBadSignature(t *testing.T) {
	header, body := signedPayload(t, `{"id": "evt_3", "object": "event", "type": "payment_intent.succeeded"}`)

	_, err := NewWebhookVerifier(0).ConstructEvent(body, header, "whsec_other")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeWebhookSignature))

	_, err = NewWebhookVerifier(0).ConstructEvent(body, "", testWebhookSecret)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeWebhookSignature))
}

func TestWebhookVerifier_UnknownObjectIsPassedThrough(t *testing.T) {
	header, body := signedPayload(t, `{
		"id": "evt_4",
		"object": "event",
		"type": "customer.created",
		"data": {"object": {"id": "cus_1", "object": "customer"}}
	}`)

	event, err := NewWebhookVerifier(0).ConstructEvent(body, header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "customer", event.ObjectType)
	assert.Nil(t, event.PaymentIntent)
	assert.Nil(t, event.Refund)
}
