package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment transaction metrics
	paymentTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transactions_total",
		Help: "Total number of executed payment transactions",
	}, []string{
		"payment_method", // Configured integration identifier
		"action",         // authorize, charge, capture, cancel, refund, confirm, re_authorize
		"status",         // successful, requires_action, failed, error
	})

	paymentAmountMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_minor_total",
		Help: "Total amount of successful transactions in currency minor units",
	}, []string{
		"payment_method",
		"action",
		"currency",
	})

	// Payment processing duration (end-to-end, including the Stripe call)
	paymentProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_processing_duration_seconds",
		Help:    "Total time to execute a payment action",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"payment_method",
		"action",
	})

	// Stripe API metrics
	stripeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_api_requests_total",
		Help: "Total Stripe API requests",
	}, []string{
		"operation", // create_payment_intent, capture_payment_intent, create_refund, ...
		"outcome",   // ok, or the Stripe error type
	})

	stripeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stripe_api_request_duration_seconds",
		Help:    "Stripe API request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"operation",
	})

	// Inbound Stripe webhook metrics
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Total Stripe webhook events received",
	}, []string{
		"event_type",
		"result", // processed, duplicate, ignored, rejected, failed
	})

	// Re-authorization metrics
	reAuthorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reauthorizations_total",
		Help: "Total re-authorization attempts of expiring authorizations",
	}, []string{
		"payment_method",
		"status", // success, failed
	})

	// Merchant notification delivery metrics
	notificationDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_notification_deliveries_total",
		Help: "Total merchant notification delivery attempts",
	}, []string{
		"event_type",
		"status", // success, failed
	})

	notificationDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "merchant_notification_delivery_duration_seconds",
		Help:    "Time to deliver a merchant notification",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{
		"event_type",
	})
)

// RecordPaymentTransaction records an executed payment action.
// Only successful transactions count toward the amount total.
func RecordPaymentTransaction(paymentMethod, action, status string, amountMinor int64, currency string, duration float64) {
	paymentTransactionsTotal.WithLabelValues(paymentMethod, action, status).Inc()
	paymentProcessingDuration.WithLabelValues(paymentMethod, action).Observe(duration)

	if status == "successful" {
		paymentAmountMinor.WithLabelValues(paymentMethod, action, currency).Add(float64(amountMinor))
	}
}

// RecordStripeRequest records one Stripe API call
func RecordStripeRequest(operation, outcome string, duration float64) {
	stripeRequestsTotal.WithLabelValues(operation, outcome).Inc()
	stripeRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordWebhookEvent records an inbound Stripe webhook event
func RecordWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordReAuthorization records a re-authorization attempt
func RecordReAuthorization(paymentMethod, status string) {
	reAuthorizationsTotal.WithLabelValues(paymentMethod, status).Inc()
}

// RecordNotificationDelivery records a merchant notification delivery
func RecordNotificationDelivery(eventType, status string, duration float64) {
	notificationDeliveriesTotal.WithLabelValues(eventType, status).Inc()
	notificationDeliveryDuration.WithLabelValues(eventType).Observe(duration)
}
