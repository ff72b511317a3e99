package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   domain.ErrorCode
	}{
		{name: "not found", err: domain.ErrTxnNotFound, status: http.StatusNotFound, code: domain.ErrorCodeTxnNotFound},
		{name: "wrapped state error", err: fmt.Errorf("capture: %w", domain.ErrTxnInvalidState), status: http.StatusConflict, code: domain.ErrorCodeTxnInvalidState},
		{name: "amount exceeded", err: domain.ErrTxnAmountExceeded, status: http.StatusUnprocessableEntity, code: domain.ErrorCodeTxnAmountExceeded},
		{name: "unsupported action", err: domain.ErrActionUnsupported, status: http.StatusBadRequest, code: domain.ErrorCodeActionUnsupported},
		{name: "unauthenticated", err: domain.ErrUnauthenticated, status: http.StatusUnauthorized, code: domain.ErrorCodeUnauthenticated},
		{name: "forbidden", err: domain.ErrForbidden, status: http.StatusForbidden, code: domain.ErrorCodeForbidden},
		{name: "gateway", err: domain.ErrGatewayError, status: http.StatusBadGateway, code: domain.ErrorCodeGatewayError},
		{name: "database", err: domain.WrapError(domain.ErrorCodeDatabaseError, "database error", errors.New("conn refused")), status: http.StatusInternalServerError, code: domain.ErrorCodeDatabaseError},
		{name: "plain error", err: errors.New("boom"), status: http.StatusInternalServerError, code: domain.ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(w, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := decode(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, string(tt.code), body.Code)
		})
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	FromError(w, zap.NewNop(), errors.New("pq: password authentication failed"))

	body := decode(t, w)
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestFromError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	FromError(w, zap.NewNop(), domain.ErrPMNotConfigured.WithDetail("payment_method", "paypal"))

	body := decode(t, w)
	assert.Equal(t, "paypal", body.Details["payment_method"])
}

func TestFromError_Validation(t *testing.T) {
	type request struct {
		Amount string `json:"amount" validate:"required"`
	}
	err := validator.New().Struct(request{})

	w := httptest.NewRecorder()
	FromError(w, zap.NewNop(), err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(domain.ErrorCodeValidationFailed), body.Code)
	assert.Equal(t, "required", body.Details["Amount"])
}

func TestJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, zap.NewNop(), http.StatusOK, map[string]interface{}{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(domain.ErrorCodeInternalError), body.Code)
	assert.False(t, body.Success)
}

func TestJSON_KeepsURLsReadable(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, zap.NewNop(), http.StatusCreated, map[string]string{"return_url": "https://shop.example/?a=1&b=2"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"return_url":"https://shop.example/?a=1&b=2"}`, w.Body.String())
}
