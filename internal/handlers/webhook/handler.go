package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/handlers/response"
	"github.com/kevin07696/stripe-payment-service/internal/services/webhook"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"go.uber.org/zap"
)

// SignatureHeader carries Stripe's webhook signature
const SignatureHeader = "Stripe-Signature"

// Stripe caps event payloads well below this
const maxPayloadBytes = 1 << 20

// Processor reconciles one verified Stripe event
type Processor interface {
	Process(ctx context.Context, paymentMethod string, payload []byte, signature string) (*webhook.Result, error)
}

// Handler receives Stripe webhook deliveries
type Handler struct {
	processor Processor
	timeouts  *resilience.TimeoutConfig
	logger    *zap.Logger
}

// NewHandler creates a webhook handler
func NewHandler(processor Processor, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	return &Handler{
		processor: processor,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Response acknowledges a delivery
type Response struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

// Routes registers the webhook endpoint under r
func (h *Handler) Routes(r chi.Router) {
	r.Post("/stripe/{paymentMethod}", h.Receive)
}

// Receive handles POST /webhooks/stripe/{paymentMethod}.
// Any non-2xx answer makes Stripe redeliver the event later.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	paymentMethod := chi.URLParam(r, "paymentMethod")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		response.FromError(w, h.logger, domain.WrapError(domain.ErrorCodeValidationFailed, "unreadable body", err))
		return
	}
	if len(payload) > maxPayloadBytes {
		response.Error(w, h.logger, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		response.FromError(w, h.logger, domain.ErrWebhookSignature.WithDetail("reason", "missing "+SignatureHeader+" header"))
		return
	}

	ctx, cancel := h.timeouts.WebhookContext(r.Context())
	defer cancel()

	result, err := h.processor.Process(ctx, paymentMethod, payload, signature)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, Response{
		EventID:   result.EventID,
		EventType: result.EventType,
		Received:  true,
		Duplicate: result.Duplicate,
		Ignored:   result.Ignored,
	})
}
