package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// PublicKeyStore manages issuer public keys for JWT verification
type PublicKeyStore struct {
	keys map[string]*rsa.PublicKey // issuer -> public key
	mu   sync.RWMutex
}

// NewPublicKeyStore creates an empty public key store
func NewPublicKeyStore() *PublicKeyStore {
	return &PublicKeyStore{
		keys: make(map[string]*rsa.PublicKey),
	}
}

// LoadKeysFromDirectory loads every .pem file in dir, keyed by file name
func (s *PublicKeyStore) LoadKeysFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pem" {
			continue
		}

		issuer := strings.TrimSuffix(entry.Name(), ".pem")
		if err := s.LoadKey(issuer, filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to load key for %s: %w", issuer, err)
		}
	}

	return nil
}

// LoadKey loads a PEM encoded public key for issuer
func (s *PublicKeyStore) LoadKey(issuer, keyPath string) error {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	return s.AddPEM(issuer, keyData)
}

// AddPEM parses and registers a PEM encoded public key
func (s *PublicKeyStore) AddPEM(issuer string, keyData []byte) error {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}
	s.AddKey(issuer, publicKey)
	return nil
}

// AddKey registers a public key directly
func (s *PublicKeyStore) AddKey(issuer string, publicKey *rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[issuer] = publicKey
}

// GetPublicKey retrieves the public key of issuer
func (s *PublicKeyStore) GetPublicKey(issuer string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[issuer]
	if !ok {
		return nil, fmt.Errorf("unknown issuer: %s", issuer)
	}

	return key, nil
}

// Len returns the number of registered issuers
func (s *PublicKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
