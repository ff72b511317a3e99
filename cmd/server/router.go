package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	cronHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/cron"
	paymentHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/payment"
	webhookHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/webhook"
	securitymw "github.com/kevin07696/stripe-payment-service/internal/middleware"
	"github.com/kevin07696/stripe-payment-service/pkg/middleware"
	"github.com/kevin07696/stripe-payment-service/pkg/observability"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/kevin07696/stripe-payment-service/pkg/shutdown"
)

type routerDeps struct {
	payments      *paymentHandler.Handler
	webhooks      *webhookHandler.Handler
	cron          *cronHandler.ReAuthorizationHandler
	auth          *securitymw.Authenticator
	rateLimiter   *middleware.RateLimiter
	inflight      *shutdown.InFlightTracker
	timeouts      *resilience.TimeoutConfig
	corsOrigins   []string
	isDevelopment bool
}

// newRouter mounts:
//
//	/api/v1/*    storefront and back-office API (CORS, rate limited, back-office routes authenticated)
//	/webhooks/*  Stripe deliveries
//	/cron/*      scheduler endpoints
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observability.HTTPMetrics)
	r.Use(securitymw.NewSecurityHeaders(d.isDevelopment).Middleware)
	r.Use(middleware.Timeout(d.timeouts))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", paymentHandler.IdempotencyHeader, securitymw.APIKeyHeader},
			MaxAge:         300,
		}))
		r.Use(d.rateLimiter.Middleware)
		r.Use(d.inflight.Middleware)
		d.payments.Routes(r, d.auth)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(d.inflight.Middleware)
		d.webhooks.Routes(r)
	})

	r.Route("/cron", func(r chi.Router) {
		r.Use(d.inflight.Middleware)
		d.cron.Routes(r)
	})

	return r
}
