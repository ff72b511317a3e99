package domain

import (
	"time"
)

// PaymentActionMode decides what a purchase does on the gateway
type PaymentActionMode string

const (
	PaymentActionManual    PaymentActionMode = "manual"    // Authorize now, capture later
	PaymentActionAutomatic PaymentActionMode = "automatic" // Charge immediately
)

// IntegrationKind is the front-end flavour of a Stripe integration
type IntegrationKind string

const (
	IntegrationPaymentElement IntegrationKind = "payment_element"
	IntegrationAppleGooglePay IntegrationKind = "apple_google_pay"
)

// DefaultReAuthorizeAfter leaves a day of margin before Stripe releases an
// uncaptured card authorization (7 days)
const DefaultReAuthorizeAfter = 6 * 24 * time.Hour

// StripeSettings is the configuration of one Stripe payment method integration
type StripeSettings struct {
	PaymentMethod             string
	Label                     string
	Kind                      IntegrationKind
	SecretKey                 string
	PublishableKey            string
	WebhookSecret             string
	PaymentAction             PaymentActionMode
	StatementDescriptorSuffix string
	ReAuthorizeAfter          time.Duration
	ReAuthorizationEnabled    bool
	UserMonitoringEnabled     bool
}

// IsManualCapture returns true when purchases only authorize
func (s *StripeSettings) IsManualCapture() bool {
	return s.PaymentAction == PaymentActionManual
}

// ReAuthorizationThreshold returns the authorization age that triggers re-authorization
func (s *StripeSettings) ReAuthorizationThreshold() time.Duration {
	if s.ReAuthorizeAfter <= 0 {
		return DefaultReAuthorizeAfter
	}
	return s.ReAuthorizeAfter
}
