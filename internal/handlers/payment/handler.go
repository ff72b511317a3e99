package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/stripe-payment-service/internal/auth"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/kevin07696/stripe-payment-service/internal/handlers/response"
	"github.com/kevin07696/stripe-payment-service/internal/services/payment"
	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyHeader may carry the idempotency key instead of the body
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Service is the payment service as seen by the API
type Service interface {
	Execute(ctx context.Context, req payment.ExecuteRequest) (*payment.ExecuteResponse, error)
	GetTransaction(ctx context.Context, id string) (*domain.PaymentTransaction, error)
	ListTransactions(ctx context.Context, entityClass, entityIdentifier string) ([]*domain.PaymentTransaction, error)
}

// Handler serves the payment REST API
type Handler struct {
	service  Service
	settings ports.SettingsProvider
	validate *validator.Validate
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger
}

// NewHandler creates a payment handler
func NewHandler(service Service, settings ports.SettingsProvider, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		settings: settings,
		validate: NewValidator(),
		timeouts: timeouts,
		logger:   logger,
	}
}

// NewValidator returns a validator that reports fields by their JSON name
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Guard builds middleware requiring credentials with the given scopes
type Guard interface {
	Require(scopes ...string) func(http.Handler) http.Handler
}

// Routes registers the API under r. Storefront routes are public; transaction
// reads and follow-up actions other than confirm need back-office credentials.
func (h *Handler) Routes(r chi.Router, guard Guard) {
	r.Post("/payments/{action}", h.Pay)
	r.Post("/transactions/{id}/confirm", h.Confirm)
	r.Get("/payment-methods/{id}/config", h.PaymentMethodConfig)

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(auth.ScopeTransactionsRead))
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(auth.ScopeTransactionsWrite))
		r.Post("/transactions/{id}/{action}", h.FollowUp)
	})
}

// PayRequest starts a payment on an entity
type PayRequest struct {
	PaymentMethod    string `json:"payment_method" validate:"required"`
	EntityClass      string `json:"entity_class" validate:"required"`
	EntityIdentifier string `json:"entity_id" validate:"required"`
	Amount           string `json:"amount" validate:"required,numeric"`
	Currency         string `json:"currency" validate:"required,len=3,alpha"`
	PaymentMethodID  string `json:"payment_method_id" validate:"required"`
	CustomerID       string `json:"customer_id,omitempty"`
	CustomerEmail    string `json:"customer_email,omitempty" validate:"omitempty,email"`
	ReturnURL        string `json:"return_url,omitempty" validate:"omitempty,url"`
	IdempotencyKey   string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
	SaveForLater     bool   `json:"save_for_later_use,omitempty"`
}

// FollowUpRequest acts on an existing transaction. Amount defaults to the
// full remaining amount for capture and refund.
type FollowUpRequest struct {
	Amount         string `json:"amount,omitempty" validate:"omitempty,numeric"`
	Reason         string `json:"reason,omitempty" validate:"omitempty,max=64"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

// ExecuteResponse is the body returned by every action
type ExecuteResponse struct {
	Result      *domain.ActionResult       `json:"result"`
	Transaction *domain.PaymentTransaction `json:"transaction"`
	Success     bool                       `json:"success"`
	Replayed    bool                       `json:"replayed,omitempty"`
}

// ConfigResponse is what a storefront needs to mount Stripe Elements
type ConfigResponse struct {
	PaymentMethod  string                   `json:"payment_method"`
	Label          string                   `json:"label"`
	Kind           domain.IntegrationKind   `json:"kind"`
	PublishableKey string                   `json:"publishable_key"`
	PaymentAction  domain.PaymentActionMode `json:"payment_action"`

	// Stripe.js advanced fraud signals
	UserMonitoringEnabled bool `json:"user_monitoring_enabled"`
}

var payActions = map[string]domain.Action{
	"purchase":  domain.ActionPurchase,
	"authorize": domain.ActionAuthorize,
	"charge":    domain.ActionCharge,
}

var followUpActions = map[string]domain.Action{
	"confirm":      domain.ActionConfirm,
	"capture":      domain.ActionCapture,
	"cancel":       domain.ActionCancel,
	"refund":       domain.ActionRefund,
	"re-authorize": domain.ActionReAuthorize,
}

// Pay handles POST /payments/{action}
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	action, ok := payActions[chi.URLParam(r, "action")]
	if !ok {
		response.FromError(w, h.logger, domain.ErrActionUnsupported.WithDetail("action", chi.URLParam(r, "action")))
		return
	}

	var req PayRequest
	if err := h.decode(r, &req); err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.FromError(w, h.logger, domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount))
		return
	}

	options := map[string]interface{}{
		domain.OptionPaymentMethodID: req.PaymentMethodID,
	}
	if req.CustomerID != "" {
		options[domain.OptionCustomerID] = req.CustomerID
	}
	if req.CustomerEmail != "" {
		options[domain.OptionCustomerEmail] = req.CustomerEmail
	}
	if req.ReturnURL != "" {
		options[domain.OptionReturnURL] = req.ReturnURL
	}
	if req.SaveForLater {
		options[domain.OptionSaveForLater] = true
	}

	h.execute(w, r, payment.ExecuteRequest{
		PaymentMethod:    req.PaymentMethod,
		Action:           action,
		EntityClass:      req.EntityClass,
		EntityIdentifier: req.EntityIdentifier,
		Amount:           amount,
		Currency:         strings.ToUpper(req.Currency),
		IdempotencyKey:   idempotencyKey(r, req.IdempotencyKey),
		Options:          options,
	})
}

// FollowUp handles POST /transactions/{id}/{action}
func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	h.followUp(w, r, chi.URLParam(r, "action"))
}

// Confirm handles POST /transactions/{id}/confirm after the customer
// completes authentication
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.followUp(w, r, "confirm")
}

func (h *Handler) followUp(w http.ResponseWriter, r *http.Request, name string) {
	action, ok := followUpActions[name]
	if !ok {
		response.FromError(w, h.logger, domain.ErrActionUnsupported.WithDetail("action", name))
		return
	}

	var req FollowUpRequest
	if err := h.decode(r, &req); err != nil {
		response.FromError(w, h.logger, err)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil || !parsed.IsPositive() {
			response.FromError(w, h.logger, domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount))
			return
		}
		amount = parsed
	}

	options := map[string]interface{}{}
	if req.Reason != "" {
		switch action {
		case domain.ActionCancel:
			options[domain.OptionCancelReason] = req.Reason
		case domain.ActionRefund:
			options[domain.OptionRefundReason] = req.Reason
		}
	}
	if principal, ok := auth.FromContext(r.Context()); ok {
		options[domain.OptionRequestedBy] = principal.Subject
	}

	h.execute(w, r, payment.ExecuteRequest{
		Action:              action,
		SourceTransactionID: chi.URLParam(r, "id"),
		Amount:              amount,
		IdempotencyKey:      idempotencyKey(r, req.IdempotencyKey),
		Options:             options,
	})
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, req payment.ExecuteRequest) {
	ctx, cancel := h.timeouts.ServiceContext(r.Context())
	defer cancel()

	h.logger.Info("Payment action requested",
		zap.String("action", string(req.Action)),
		zap.String("payment_method", req.PaymentMethod),
		zap.String("source_transaction_id", req.SourceTransactionID),
	)

	resp, err := h.service.Execute(ctx, req)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, ExecuteResponse{
		Result:      resp.Result,
		Transaction: resp.Transaction,
		Success:     resp.Result.Successful,
		Replayed:    resp.Replayed,
	})
}

// GetTransaction handles GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	t, err := h.service.GetTransaction(ctx, chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, t)
}

// ListTransactions handles GET /transactions?entity_class=&entity_id=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entityClass := r.URL.Query().Get("entity_class")
	entityID := r.URL.Query().Get("entity_id")
	if entityClass == "" || entityID == "" {
		response.FromError(w, h.logger, domain.ErrValidationMissingField.WithDetail("field", "entity_class, entity_id"))
		return
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	txs, err := h.service.ListTransactions(ctx, entityClass, entityID)
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	if txs == nil {
		txs = []*domain.PaymentTransaction{}
	}
	response.JSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"transactions": txs,
	})
}

// PaymentMethodConfig handles GET /payment-methods/{id}/config.
// Only publishable values leave the service.
func (h *Handler) PaymentMethodConfig(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, ConfigResponse{
		PaymentMethod:  s.PaymentMethod,
		Label:          s.Label,
		Kind:           s.Kind,
		PublishableKey: s.PublishableKey,
		PaymentAction:  s.PaymentAction,

		UserMonitoringEnabled: s.UserMonitoringEnabled,
	})
}

// decode reads an optional JSON body into v and validates it
func (h *Handler) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.WrapError(domain.ErrorCodeValidationFailed, "invalid request body", err)
	}
	return h.validate.Struct(v)
}

func idempotencyKey(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(IdempotencyHeader)
}
