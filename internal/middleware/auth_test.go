package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevin07696/stripe-payment-service/internal/auth"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/handlers/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	principal *auth.Principal
	err       error
	token     string
}

func (s *stubVerifier) Verify(token string) (*auth.Principal, error) {
	s.token = token
	return s.principal, s.err
}

func newTestAuthenticator(tokens TokenVerifier) *Authenticator {
	keys := auth.NewAPIKeyStore("test_")
	keys.Add("reporting", "key-123", auth.ScopeTransactionsRead)
	return NewAuthenticator(tokens, keys, zap.NewNop())
}

func serve(a *Authenticator, r *http.Request, scopes ...string) (*httptest.ResponseRecorder, *auth.Principal) {
	var seen *auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	a.Require(scopes...)(next).ServeHTTP(w, r)
	return w, seen
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestAuthenticator_APIKey(t *testing.T) {
	a := newTestAuthenticator(nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	r.Header.Set(APIKeyHeader, "key-123")

	w, principal := serve(a, r, auth.ScopeTransactionsRead)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "reporting", principal.Subject)
}

func TestAuthenticator_BearerToken(t *testing.T) {
	verifier := &stubVerifier{principal: &auth.Principal{
		Type:    auth.AuthTypeJWT,
		Subject: "ops@example.com",
		Scopes:  auth.BackOfficeScopes,
	}}
	a := newTestAuthenticator(verifier)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/t1/capture", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	w, principal := serve(a, r, auth.ScopeTransactionsWrite)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc.def.ghi", verifier.token)
	require.NotNil(t, principal)
	assert.Equal(t, "ops@example.com", principal.Subject)
}

func TestAuthenticator_Unauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		tokens TokenVerifier
	}{
		{name: "no credentials"},
		{name: "unknown API key", header: APIKeyHeader, value: "key-999"},
		{name: "basic scheme", header: "Authorization", value: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Authorization", value: "Bearer "},
		{name: "bearer without verifier", header: "Authorization", value: "Bearer abc"},
		{name: "rejected token", header: "Authorization", value: "Bearer abc", tokens: &stubVerifier{err: errors.New("token expired")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuthenticator(tt.tokens)
			r := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}

			w, principal := serve(a, r, auth.ScopeTransactionsRead)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, string(domain.ErrorCodeUnauthenticated), errorCode(t, w))
			assert.Nil(t, principal)
		})
	}
}

func TestAuthenticator_MissingScope(t *testing.T) {
	a := newTestAuthenticator(nil)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/t1/refund", nil)
	r.Header.Set(APIKeyHeader, "key-123")

	w, principal := serve(a, r, auth.ScopeTransactionsWrite)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(domain.ErrorCodeForbidden), errorCode(t, w))
	assert.Nil(t, principal)
}
