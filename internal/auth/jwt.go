package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway absorbs clock skew between issuers and this service
const DefaultLeeway = 30 * time.Second

// Claims are the claims carried by back-office tokens
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// Verifier validates RSA signed bearer tokens against the issuer's key
type Verifier struct {
	keys     *PublicKeyStore
	audience string
	leeway   time.Duration
}

// NewVerifier creates a verifier. An empty audience skips the aud check.
func NewVerifier(keys *PublicKeyStore, audience string) *Verifier {
	return &Verifier{
		keys:     keys,
		audience: audience,
		leeway:   DefaultLeeway,
	}
}

// Verify parses tokenString and returns its principal
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodRS384.Alg(),
			jwt.SigningMethodRS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		issuer, err := token.Claims.GetIssuer()
		if err != nil {
			return nil, err
		}
		if issuer == "" {
			return nil, errors.New("missing issuer")
		}
		key, err := v.keys.GetPublicKey(issuer)
		if err != nil {
			return nil, err
		}
		return key, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}

	return &Principal{
		Type:    AuthTypeJWT,
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
		TokenID: claims.ID,
		Scopes:  claims.Scopes,
	}, nil
}
