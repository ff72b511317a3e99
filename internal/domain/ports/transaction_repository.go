package ports

import (
	"context"
	"time"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
)

// TransactionFilter narrows FindByReference and ListExpiringAuthorizations lookups
type TransactionFilter struct {
	PaymentMethod string
	Reference     string
	Actions       []domain.Action
	Active        *bool
	Successful    *bool
}

// TransactionRepository defines the interface for payment transaction persistence
type TransactionRepository interface {
	// Create inserts a new transaction
	Create(ctx context.Context, db DBTX, transaction *domain.PaymentTransaction) error

	// Update persists the mutable fields of a transaction (flags, reference, response, options)
	Update(ctx context.Context, db DBTX, transaction *domain.PaymentTransaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.PaymentTransaction, error)

	// GetByIDForUpdate retrieves a transaction and locks its row until the
	// surrounding database transaction ends
	GetByIDForUpdate(ctx context.Context, db DBTX, id string) (*domain.PaymentTransaction, error)

	// GetByIdempotencyKey retrieves a transaction by its idempotency key
	GetByIdempotencyKey(ctx context.Context, db DBTX, key string) (*domain.PaymentTransaction, error)

	// FindByReference returns transactions holding a gateway reference, newest first
	FindByReference(ctx context.Context, db DBTX, filter TransactionFilter) ([]*domain.PaymentTransaction, error)

	// ListBySource returns the transactions that depend on sourceID, oldest first
	ListBySource(ctx context.Context, db DBTX, sourceID string) ([]*domain.PaymentTransaction, error)

	// ListByEntity returns every transaction of a payable entity, oldest first
	ListByEntity(ctx context.Context, db DBTX, entityClass, entityIdentifier string) ([]*domain.PaymentTransaction, error)

	// ListExpiringAuthorizations returns open authorizations created before createdBefore
	ListExpiringAuthorizations(ctx context.Context, db DBTX, paymentMethods []string, createdBefore time.Time, limit int32) ([]*domain.PaymentTransaction, error)
}

// WebhookEventRepository records processed gateway events
type WebhookEventRepository interface {
	// MarkProcessed records the event and returns false if it was already recorded
	MarkProcessed(ctx context.Context, db DBTX, eventID, eventType, paymentMethod string) (bool, error)
}
