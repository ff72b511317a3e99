package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kevin07696/stripe-payment-service/internal/auth"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/handlers/response"
	"go.uber.org/zap"
)

// APIKeyHeader carries back-office API keys
const APIKeyHeader = "X-API-Key"

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// KeyAuthenticator validates API keys
type KeyAuthenticator interface {
	Authenticate(key string) (*auth.Principal, error)
}

// Authenticator guards back-office routes with a bearer JWT or an API key
type Authenticator struct {
	tokens TokenVerifier
	keys   KeyAuthenticator
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator. Either credential source may be nil.
func NewAuthenticator(tokens TokenVerifier, keys KeyAuthenticator, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		keys:   keys,
		logger: logger,
	}
}

// Require rejects requests without credentials holding every scope
func (a *Authenticator) Require(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.authenticate(r)
			if err != nil {
				a.logger.Warn("Authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				response.FromError(w, a.logger, domain.ErrUnauthenticated)
				return
			}

			if !principal.HasScopes(scopes...) {
				a.logger.Warn("Insufficient scope",
					zap.String("path", r.URL.Path),
					zap.String("subject", principal.Subject),
					zap.Strings("required", scopes))
				response.FromError(w, a.logger, domain.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request) (*auth.Principal, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return nil, errors.New("unsupported authorization scheme")
		}
		if a.tokens == nil {
			return nil, errors.New("bearer tokens are not accepted")
		}
		return a.tokens.Verify(token)
	}

	if key := r.Header.Get(APIKeyHeader); key != "" {
		if a.keys == nil {
			return nil, errors.New("API keys are not accepted")
		}
		return a.keys.Authenticate(key)
	}

	return nil, errors.New("missing authentication credentials")
}
