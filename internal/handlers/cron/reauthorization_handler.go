package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/stripe-payment-service/internal/handlers/response"
	"github.com/kevin07696/stripe-payment-service/internal/services/reauthorization"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/kevin07696/stripe-payment-service/pkg/timeutil"
	"go.uber.org/zap"
)

// SecretHeader authenticates scheduler calls
const SecretHeader = "X-Cron-Secret"

// ReAuthorizer replaces expiring authorizations
type ReAuthorizer interface {
	Run(ctx context.Context, opts reauthorization.RunOptions) (*reauthorization.RunResult, error)
}

// ReAuthorizationHandler handles cron job endpoints for re-authorization
type ReAuthorizationHandler struct {
	service    ReAuthorizer
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
	cronSecret string
}

// NewReAuthorizationHandler creates a new re-authorization cron handler
func NewReAuthorizationHandler(
	service ReAuthorizer,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
	cronSecret string,
) *ReAuthorizationHandler {
	return &ReAuthorizationHandler{
		service:    service,
		timeouts:   timeouts,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// ReAuthorizeRequest represents the optional request body
type ReAuthorizeRequest struct {
	AsOf      *string `json:"as_of"`      // YYYY-MM-DD or RFC 3339, defaults to now
	BatchSize *int    `json:"batch_size"` // Per integration, defaults to 100
}

// ReAuthorizeResponse represents the outcome of one run
type ReAuthorizeResponse struct {
	Errors       []string `json:"errors,omitempty"`
	ProcessedAt  string   `json:"processed_at"`
	Processed    int      `json:"processed"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Success      bool     `json:"success"`
}

// Routes registers the cron endpoints under r
func (h *ReAuthorizationHandler) Routes(r chi.Router) {
	r.Post("/re-authorize", h.ReAuthorize)
	r.Get("/health", h.HealthCheck)
}

// ReAuthorize handles POST /cron/re-authorize
func (h *ReAuthorizationHandler) ReAuthorize(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Re-authorization cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		response.Error(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReAuthorizeRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, h.logger, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	opts := reauthorization.RunOptions{}
	if req.AsOf != nil {
		asOf, err := timeutil.ParseAsOf(*req.AsOf)
		if err != nil {
			response.Error(w, h.logger, http.StatusBadRequest, "invalid as_of: "+err.Error())
			return
		}
		opts.AsOf = asOf
	}
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > 1000 {
			response.Error(w, h.logger, http.StatusBadRequest, "batch_size must be between 1 and 1000")
			return
		}
		opts.BatchSize = int32(*req.BatchSize)
	}

	// Detached from the request so a scheduler timeout does not abort a run midway
	ctx, cancel := h.timeouts.CronContext(context.WithoutCancel(r.Context()))
	defer cancel()

	result, err := h.service.Run(ctx, opts)
	if err != nil && (result == nil || result.Processed == 0) {
		response.FromError(w, h.logger, err)
		return
	}

	resp := ReAuthorizeResponse{
		Processed:    result.Processed,
		SuccessCount: result.Succeeded,
		FailureCount: result.Failed,
		ProcessedAt:  timeutil.Now().Format(time.RFC3339),
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Success = len(resp.Errors) == 0

	h.logger.Info("Re-authorization run finished",
		zap.Int("processed", resp.Processed),
		zap.Int("success", resp.SuccessCount),
		zap.Int("failed", resp.FailureCount),
	)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusPartialContent
	}
	response.JSON(w, h.logger, status, resp)
}

// authenticateRequest accepts the secret as X-Cron-Secret or a Bearer token
func (h *ReAuthorizationHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	if secret := r.Header.Get(SecretHeader); secret != "" {
		return subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) == 1
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte("Bearer "+h.cronSecret)) == 1
}

// HealthCheck handles GET /cron/health for monitoring
func (h *ReAuthorizationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   timeutil.Now().Format(time.RFC3339),
	})
}
