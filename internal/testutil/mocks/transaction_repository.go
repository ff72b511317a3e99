package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// TransactionStore is an in-memory ports.TransactionRepository.
// It stores copies, so callers only see their changes after Update.
type TransactionStore struct {
	mu    sync.Mutex
	rows  map[string]*domain.PaymentTransaction
	order map[string]int
	seq   int
}

// NewTransactionStore returns a store seeded with transactions
func NewTransactionStore(seed ...*domain.PaymentTransaction) *TransactionStore {
	s := &TransactionStore{
		rows:  make(map[string]*domain.PaymentTransaction),
		order: make(map[string]int),
	}
	for _, t := range seed {
		s.put(t)
	}
	return s
}

func (s *TransactionStore) put(t *domain.PaymentTransaction) {
	if _, ok := s.order[t.ID]; !ok {
		s.seq++
		s.order[t.ID] = s.seq
	}
	s.rows[t.ID] = clone(t)
}

func clone(t *domain.PaymentTransaction) *domain.PaymentTransaction {
	c := *t
	c.Request = cloneMap(t.Request)
	c.Response = cloneMap(t.Response)
	c.TransactionOptions = cloneMap(t.TransactionOptions)
	if t.SourceTransactionID != nil {
		id := *t.SourceTransactionID
		c.SourceTransactionID = &id
	}
	if t.IdempotencyKey != nil {
		key := *t.IdempotencyKey
		c.IdempotencyKey = &key
	}
	return &c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *TransactionStore) Create(_ context.Context, _ ports.DBTX, t *domain.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[t.ID]; ok {
		return fmt.Errorf("create transaction: duplicate id %s", t.ID)
	}
	if t.IdempotencyKey != nil {
		for _, row := range s.rows {
			if row.IdempotencyKey != nil && *row.IdempotencyKey == *t.IdempotencyKey {
				return fmt.Errorf("create transaction: duplicate idempotency key %s", *t.IdempotencyKey)
			}
		}
	}
	s.put(t)
	return nil
}

func (s *TransactionStore) Update(_ context.Context, _ ports.DBTX, t *domain.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[t.ID]; !ok {
		return fmt.Errorf("update transaction %s: %w", t.ID, domain.ErrTransactionNotFound)
	}
	t.UpdatedAt = time.Now().UTC()
	s.put(t)
	return nil
}

func (s *TransactionStore) GetByID(_ context.Context, _ ports.DBTX, id string) (*domain.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return clone(t), nil
}

func (s *TransactionStore) GetByIDForUpdate(ctx context.Context, db ports.DBTX, id string) (*domain.PaymentTransaction, error) {
	return s.GetByID(ctx, db, id)
}

func (s *TransactionStore) GetByIdempotencyKey(_ context.Context, _ ports.DBTX, key string) (*domain.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rows {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return clone(t), nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *TransactionStore) FindByReference(_ context.Context, _ ports.DBTX, filter ports.TransactionFilter) ([]*domain.PaymentTransaction, error) {
	result := s.filter(func(t *domain.PaymentTransaction) bool {
		if t.Reference != filter.Reference {
			return false
		}
		if filter.PaymentMethod != "" && t.PaymentMethod != filter.PaymentMethod {
			return false
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, t.Action) {
			return false
		}
		if filter.Active != nil && t.Active != *filter.Active {
			return false
		}
		if filter.Successful != nil && t.Successful != *filter.Successful {
			return false
		}
		return true
	})
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (s *TransactionStore) ListBySource(_ context.Context, _ ports.DBTX, sourceID string) ([]*domain.PaymentTransaction, error) {
	return s.filter(func(t *domain.PaymentTransaction) bool {
		return t.SourceTransactionID != nil && *t.SourceTransactionID == sourceID
	}), nil
}

func (s *TransactionStore) ListByEntity(_ context.Context, _ ports.DBTX, entityClass, entityIdentifier string) ([]*domain.PaymentTransaction, error) {
	return s.filter(func(t *domain.PaymentTransaction) bool {
		return t.EntityClass == entityClass && t.EntityIdentifier == entityIdentifier
	}), nil
}

func (s *TransactionStore) ListExpiringAuthorizations(_ context.Context, _ ports.DBTX, paymentMethods []string, createdBefore time.Time, limit int32) ([]*domain.PaymentTransaction, error) {
	result := s.filter(func(t *domain.PaymentTransaction) bool {
		if !t.IsOpenAuthorization() || t.CreatedAt.After(createdBefore) {
			return false
		}
		for _, pm := range paymentMethods {
			if pm == t.PaymentMethod {
				return true
			}
		}
		return false
	})
	if limit > 0 && len(result) > int(limit) {
		result = result[:limit]
	}
	return result, nil
}

// All returns every stored transaction, oldest first
func (s *TransactionStore) All() []*domain.PaymentTransaction {
	return s.filter(func(*domain.PaymentTransaction) bool { return true })
}

// Get returns the stored copy of id, or nil
func (s *TransactionStore) Get(id string) *domain.PaymentTransaction {
	t, err := s.GetByID(context.Background(), nil, id)
	if err != nil {
		return nil
	}
	return t
}

// ByAction returns stored transactions with action, oldest first
func (s *TransactionStore) ByAction(action domain.Action) []*domain.PaymentTransaction {
	return s.filter(func(t *domain.PaymentTransaction) bool { return t.Action == action })
}

func (s *TransactionStore) filter(keep func(*domain.PaymentTransaction) bool) []*domain.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.PaymentTransaction
	for _, t := range s.rows {
		if keep(t) {
			result = append(result, clone(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return s.order[result[i].ID] < s.order[result[j].ID]
	})
	return result
}

func containsAction(actions []domain.Action, a domain.Action) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// WebhookEventStore is an in-memory ports.WebhookEventRepository
type WebhookEventStore struct {
	mu     sync.Mutex
	events map[string]string
}

func NewWebhookEventStore() *WebhookEventStore {
	return &WebhookEventStore{events: make(map[string]string)}
}

func (s *WebhookEventStore) MarkProcessed(_ context.Context, _ ports.DBTX, eventID, eventType, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; ok {
		return false, nil
	}
	s.events[eventID] = eventType
	return true, nil
}
