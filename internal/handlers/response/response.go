// Package response writes the JSON envelopes shared by every HTTP handler.
package response

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/pkg/encoding"
	"go.uber.org/zap"
)

// ErrorBody is the JSON body of every failed request
type ErrorBody struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Error   string                 `json:"error"`
	Success bool                   `json:"success"`
}

// JSON writes v with the given status code. Encoding happens before the
// header is sent, so a value that cannot be encoded becomes a 500.
func JSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, v interface{}) {
	body, err := encoding.EncodeJSON(v)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		statusCode = http.StatusInternalServerError
		body = []byte(`{"success":false,"code":"INTERNAL_ERROR","error":"internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

// Error writes a plain error message
func Error(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	JSON(w, logger, statusCode, ErrorBody{Error: message})
}

// FromError writes err with the status its domain code maps to.
// Errors without a domain code are logged and hidden behind a 500.
func FromError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		JSON(w, logger, http.StatusBadRequest, ErrorBody{
			Code:    string(domain.ErrorCodeValidationFailed),
			Error:   "validation failed",
			Details: details,
		})
		return
	}

	var de *domain.DomainError
	if !errors.As(err, &de) {
		logger.Error("Unhandled error", zap.Error(err))
		JSON(w, logger, http.StatusInternalServerError, ErrorBody{
			Code:  string(domain.ErrorCodeInternalError),
			Error: "internal server error",
		})
		return
	}

	status := StatusFor(de.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", string(de.Code)), zap.Error(err))
	}

	body := ErrorBody{Code: string(de.Code), Error: de.Message, Details: de.Details}
	if status == http.StatusInternalServerError {
		body.Details = nil
	}
	JSON(w, logger, status, body)
}

// StatusFor maps a domain error code to an HTTP status
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeTxnNotFound, domain.ErrorCodePMNotConfigured:
		return http.StatusNotFound
	case domain.ErrorCodeTxnInvalidState, domain.ErrorCodeTxnAlreadyProcessed, domain.ErrorCodeIdempotencyConflict:
		return http.StatusConflict
	case domain.ErrorCodeTxnAmountExceeded, domain.ErrorCodeCustomerMissing:
		return http.StatusUnprocessableEntity
	case domain.ErrorCodeTxnSourceRequired,
		domain.ErrorCodeActionUnsupported,
		domain.ErrorCodePMRequired,
		domain.ErrorCodeValidationFailed,
		domain.ErrorCodeValidationAmountInvalid,
		domain.ErrorCodeValidationMissingField,
		domain.ErrorCodeWebhookSignature:
		return http.StatusBadRequest
	case domain.ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrorCodeForbidden:
		return http.StatusForbidden
	case domain.ErrorCodeGatewayDeclined:
		return http.StatusPaymentRequired
	case domain.ErrorCodeGatewayError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
