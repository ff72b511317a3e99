// Package fixtures builds payment transactions and Stripe settings for tests
package fixtures

import (
	"github.com/kevin07696/stripe-payment-service/internal/domain"
)

// ManualSettings returns a Payment Element integration that only authorizes purchases
func ManualSettings() *domain.StripeSettings {
	return &domain.StripeSettings{
		PaymentMethod:          PaymentMethod,
		Label:                  "Credit Card",
		Kind:                   domain.IntegrationPaymentElement,
		SecretKey:              "sk_test_123",
		PublishableKey:         "pk_test_123",
		WebhookSecret:          "whsec_test_123",
		PaymentAction:          domain.PaymentActionManual,
		ReAuthorizeAfter:       domain.DefaultReAuthorizeAfter,
		ReAuthorizationEnabled: true,
		UserMonitoringEnabled:  true,
	}
}

// AutomaticSettings returns an integration that charges immediately
func AutomaticSettings() *domain.StripeSettings {
	s := ManualSettings()
	s.PaymentAction = domain.PaymentActionAutomatic
	s.ReAuthorizationEnabled = false
	return s
}

// SettingsProvider is a static ports.SettingsProvider
type SettingsProvider struct {
	Settings []*domain.StripeSettings
}

// NewSettingsProvider returns a provider serving the given integrations
func NewSettingsProvider(settings ...*domain.StripeSettings) *SettingsProvider {
	return &SettingsProvider{Settings: settings}
}

func (p *SettingsProvider) Get(paymentMethod string) (*domain.StripeSettings, error) {
	for _, s := range p.Settings {
		if s.PaymentMethod == paymentMethod {
			return s, nil
		}
	}
	return nil, domain.ErrPMNotConfigured.WithDetail("payment_method", paymentMethod)
}

func (p *SettingsProvider) All() []*domain.StripeSettings {
	return p.Settings
}
