package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevin07696/stripe-payment-service/internal/auth"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	cronHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/cron"
	paymentHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/payment"
	webhookHandler "github.com/kevin07696/stripe-payment-service/internal/handlers/webhook"
	securitymw "github.com/kevin07696/stripe-payment-service/internal/middleware"
	paymentService "github.com/kevin07696/stripe-payment-service/internal/services/payment"
	"github.com/kevin07696/stripe-payment-service/internal/services/reauthorization"
	webhookService "github.com/kevin07696/stripe-payment-service/internal/services/webhook"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/fixtures"
	"github.com/kevin07696/stripe-payment-service/internal/testutil/mocks"
	"github.com/kevin07696/stripe-payment-service/pkg/middleware"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/kevin07696/stripe-payment-service/pkg/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	timeouts := resilience.TestTimeoutConfig()

	authorization := fixtures.OpenAuthorization("25.00")
	store := mocks.NewTransactionStore(authorization)
	settings := fixtures.NewSettingsProvider(fixtures.ManualSettings())
	db := &mocks.MockDB{}
	gateways := &mocks.GatewayFactory{Gw: &mocks.MockStripeGateway{}}

	payments := paymentService.NewService(db, store, settings, gateways, paymentService.NewDefaultExecutor(logger), logger)
	processor := webhookService.NewProcessor(db, store, mocks.NewWebhookEventStore(), settings, nil, nil, logger)
	reauth := reauthorization.NewService(store, settings, payments, nil, logger)

	keys := auth.NewAPIKeyStore("test_")
	keys.Add("backoffice", testAPIKey, auth.BackOfficeScopes...)

	rl := middleware.NewRateLimiter(100, 100, logger)
	t.Cleanup(rl.Shutdown)

	return newRouter(routerDeps{
		payments:    paymentHandler.NewHandler(payments, settings, timeouts, logger),
		webhooks:    webhookHandler.NewHandler(processor, timeouts, logger),
		cron:        cronHandler.NewReAuthorizationHandler(reauth, timeouts, logger, "cron-secret"),
		auth:        securitymw.NewAuthenticator(nil, keys, logger),
		rateLimiter: rl,
		inflight:    shutdown.NewInFlightTracker("payments", logger),
		timeouts:    timeouts,
		corsOrigins: []string{"https://shop.example"},
	})
}

const testAPIKey = "bo-key"

func TestRouter_Routes(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		method string
		path   string
		apiKey string
		status int
	}{
		{method: http.MethodGet, path: "/api/v1/payment-methods/" + fixtures.PaymentMethod + "/config", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/transactions?entity_class=" + fixtures.EntityClass + "&entity_id=" + fixtures.EntityIdentifier, apiKey: testAPIKey, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/transactions?entity_class=" + fixtures.EntityClass + "&entity_id=" + fixtures.EntityIdentifier, status: http.StatusUnauthorized},
		{method: http.MethodGet, path: "/api/v1/transactions/6f1c1f66-3f0c-4c38-9a8b-2e4a1f6b5a10", apiKey: testAPIKey, status: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/v1/transactions/6f1c1f66-3f0c-4c38-9a8b-2e4a1f6b5a10/capture", status: http.StatusUnauthorized},
		{method: http.MethodPost, path: "/api/v1/transactions/6f1c1f66-3f0c-4c38-9a8b-2e4a1f6b5a10/refund", apiKey: "wrong", status: http.StatusUnauthorized},
		{method: http.MethodPost, path: "/webhooks/stripe/" + fixtures.PaymentMethod, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/cron/re-authorize", status: http.StatusUnauthorized},
		{method: http.MethodGet, path: "/cron/health", status: http.StatusOK},
		{method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set(securitymw.APIKeyHeader, tt.apiKey)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_SecurityHeadersAndCORS(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments/purchase", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/transactions/abc/capture", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Api-Key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ActiveAuthorizationListed(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/transactions?entity_class="+fixtures.EntityClass+"&entity_id="+fixtures.EntityIdentifier, nil)
	req.Header.Set(securitymw.APIKeyHeader, testAPIKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.ActionAuthorize))
}
