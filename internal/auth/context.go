package auth

import "context"

// AuthType represents the type of authentication used
type AuthType string

const (
	AuthTypeJWT    AuthType = "jwt"
	AuthTypeAPIKey AuthType = "api_key"
)

// Back-office scopes
const (
	ScopeTransactionsRead  = "transactions:read"
	ScopeTransactionsWrite = "transactions:write"
)

// BackOfficeScopes are granted to every configured API key
var BackOfficeScopes = []string{ScopeTransactionsRead, ScopeTransactionsWrite}

// Principal is the authenticated caller of a back-office route
type Principal struct {
	Type    AuthType
	Subject string
	Issuer  string
	TokenID string
	Scopes  []string
}

// HasScopes reports whether the principal holds every required scope
func (p *Principal) HasScopes(required ...string) bool {
	return ValidateScopes(p.Scopes, required)
}

type principalKey struct{}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// ValidateScopes checks if the provided scopes match the required scopes
func ValidateScopes(providedScopes, requiredScopes []string) bool {
	scopeMap := make(map[string]bool, len(providedScopes))
	for _, scope := range providedScopes {
		scopeMap[scope] = true
	}

	for _, required := range requiredScopes {
		if !scopeMap[required] {
			return false
		}
	}

	return true
}
