package secrets

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// DefaultCacheTTL is how long secrets stay in memory before they are re-read
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

// CachedStore keeps secrets in memory per instance so key rotation is picked
// up after at most one TTL
type CachedStore struct {
	next    ports.SecretStore
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// NewCachedStore wraps next with a TTL cache
func NewCachedStore(next ports.SecretStore, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// GetSecret returns the cached secret or reads it from the wrapped store
func (c *CachedStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.secret, nil
	}

	secret, err := c.next.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = &cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return secret, nil
}

// Invalidate drops a cached path
func (c *CachedStore) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Close releases the wrapped store when it holds a client connection
func (c *CachedStore) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
