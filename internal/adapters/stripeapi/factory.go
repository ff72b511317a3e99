package stripeapi

import (
	"sync"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"go.uber.org/zap"
)

// GatewayFactory hands out one client per secret key
type GatewayFactory struct {
	config  *Config
	logger  *zap.Logger
	clients sync.Map // secret key -> *Client
}

// NewGatewayFactory creates a factory sharing cfg across integrations
func NewGatewayFactory(cfg *Config, logger *zap.Logger) *GatewayFactory {
	return &GatewayFactory{config: cfg, logger: logger}
}

// Gateway returns the client for the integration's secret key
func (f *GatewayFactory) Gateway(settings *domain.StripeSettings) ports.StripeGateway {
	if cached, ok := f.clients.Load(settings.SecretKey); ok {
		return cached.(*Client)
	}

	client := NewClient(settings.SecretKey, f.config, f.logger.With(zap.String("payment_method", settings.PaymentMethod)))
	actual, _ := f.clients.LoadOrStore(settings.SecretKey, client)
	return actual.(*Client)
}
