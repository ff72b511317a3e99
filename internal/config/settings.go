package config

import (
	"github.com/kevin07696/stripe-payment-service/internal/domain"
)

// SettingsProvider serves the configured Stripe integrations
type SettingsProvider struct {
	byID    map[string]*domain.StripeSettings
	ordered []*domain.StripeSettings
}

// NewSettingsProvider indexes settings by payment method id
func NewSettingsProvider(settings []*domain.StripeSettings) *SettingsProvider {
	p := &SettingsProvider{
		byID:    make(map[string]*domain.StripeSettings, len(settings)),
		ordered: settings,
	}
	for _, s := range settings {
		p.byID[s.PaymentMethod] = s
	}
	return p
}

// Get returns the settings of one integration
func (p *SettingsProvider) Get(paymentMethod string) (*domain.StripeSettings, error) {
	s, ok := p.byID[paymentMethod]
	if !ok {
		return nil, domain.ErrPMNotConfigured.WithDetail("payment_method", paymentMethod)
	}
	return s, nil
}

// All returns every integration in configuration order
func (p *SettingsProvider) All() []*domain.StripeSettings {
	return p.ordered
}
