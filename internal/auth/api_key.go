package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrInvalidAPIKey is returned for unknown API keys
var ErrInvalidAPIKey = errors.New("invalid API credentials")

type apiKeyEntry struct {
	hash      string
	principal *Principal
}

// APIKeyStore authenticates back-office API keys. Only salted hashes are kept.
type APIKeyStore struct {
	saltPrefix string
	entries    []apiKeyEntry
}

// NewAPIKeyStore creates an empty store hashing keys with saltPrefix
func NewAPIKeyStore(saltPrefix string) *APIKeyStore {
	return &APIKeyStore{saltPrefix: saltPrefix}
}

// Add registers key for the named client
func (s *APIKeyStore) Add(name, key string, scopes ...string) {
	s.entries = append(s.entries, apiKeyEntry{
		hash: s.hashWithSalt(key),
		principal: &Principal{
			Type:    AuthTypeAPIKey,
			Subject: name,
			Scopes:  scopes,
		},
	})
}

// Authenticate returns the principal owning key
func (s *APIKeyStore) Authenticate(key string) (*Principal, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}
	hash := []byte(s.hashWithSalt(key))
	for _, entry := range s.entries {
		if subtle.ConstantTimeCompare(hash, []byte(entry.hash)) == 1 {
			return entry.principal, nil
		}
	}
	return nil, ErrInvalidAPIKey
}

// Len returns the number of registered keys
func (s *APIKeyStore) Len() int {
	return len(s.entries)
}

// hashWithSalt creates a salted hash of the input
func (s *APIKeyStore) hashWithSalt(input string) string {
	h := sha256.Sum256([]byte(s.saltPrefix + input))
	return hex.EncodeToString(h[:])
}
