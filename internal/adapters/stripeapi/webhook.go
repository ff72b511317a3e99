package stripeapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookVerifier implements ports.WebhookVerifier with the SDK's signature check
type WebhookVerifier struct {
	tolerance time.Duration
}

// NewWebhookVerifier creates a verifier; a zero tolerance uses the SDK default (5 minutes)
func NewWebhookVerifier(tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{tolerance: tolerance}
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event object
func (v *WebhookVerifier) ConstructEvent(payload []byte, signatureHeader, secret string) (*ports.WebhookEvent, error) {
	// Endpoints may be pinned to an API version other than the SDK's
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeWebhookSignature, "webhook signature verification failed", err)
	}

	out := &ports.WebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Livemode: event.Livemode,
		Created:  time.Unix(event.Created, 0).UTC(),
		Raw:      payload,
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var envelope struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(event.Data.Raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode event object: %w", err)
	}
	out.ObjectType = envelope.Object

	switch envelope.Object {
	case "payment_intent":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntent = toPaymentIntent(&pi)
	case "refund":
		var r stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
		out.Refund = toRefund(&r)
	}

	return out, nil
}
