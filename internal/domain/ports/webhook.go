package ports

import "time"

// Stripe event types the reconciliation executors handle
const (
	EventPaymentIntentCanceled         = "payment_intent.canceled"
	EventPaymentIntentSucceeded        = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentIntentAmountCapturable = "payment_intent.amount_capturable_updated"
	EventRefundCreated                 = "refund.created"
	EventRefundUpdated                 = "refund.updated"
	EventChargeRefundUpdated           = "charge.refund.updated"
)

// WebhookEvent is a verified Stripe event with its object decoded
type WebhookEvent struct {
	Created       time.Time
	PaymentIntent *PaymentIntent
	Refund        *Refund
	Raw           []byte
	ID            string
	Type          string
	ObjectType    string
	Livemode      bool
}

// WebhookVerifier checks a Stripe-Signature header and decodes the event
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signatureHeader, secret string) (*WebhookEvent, error)
}
