package resilience

import (
	"context"
	"time"
)

// TimeoutConfig holds the deadlines of each layer, outermost first:
//
//	HTTP handler (60s) > service (50s) > Stripe API (30s)
//
// Each layer must finish before its parent gives up so that a ledger
// transaction is never left open by a timed-out caller.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	CronJob     time.Duration

	Service time.Duration

	StripeAPI            time.Duration
	WebhookProcessing    time.Duration
	NotificationDelivery time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 60 * time.Second,
		// A re-authorization run touches every expiring authorization
		CronJob: 10 * time.Minute,

		Service: 50 * time.Second,

		StripeAPI:            30 * time.Second,
		WebhookProcessing:    20 * time.Second,
		NotificationDelivery: 10 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:          5 * time.Second,
		CronJob:              30 * time.Second,
		Service:              4 * time.Second,
		StripeAPI:            2 * time.Second,
		WebhookProcessing:    2 * time.Second,
		NotificationDelivery: 1 * time.Second,
	}
}

// HandlerContext bounds an API request
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext bounds one scheduled run
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// ServiceContext bounds one payment action
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// StripeAPIContext bounds a single Stripe request
func (tc *TimeoutConfig) StripeAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.StripeAPI)
}

// WebhookContext bounds the reconciliation of one Stripe event.
// Stripe retries events that are not acknowledged in time.
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.WebhookProcessing)
}

// NotificationContext bounds one merchant notification attempt
func (tc *TimeoutConfig) NotificationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.NotificationDelivery)
}
