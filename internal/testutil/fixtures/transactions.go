package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Defaults shared by builders and tests
const (
	PaymentMethod    = "stripe_payment_element_1"
	EntityClass      = "order"
	EntityIdentifier = "1001"
	StripePMID       = "pm_card_visa"
	StripeCustomerID = "cus_test_1"
)

// TransactionBuilder provides fluent API for building test transactions.
type TransactionBuilder struct {
	transaction *domain.PaymentTransaction
}

// NewTransaction creates a new transaction builder with sensible defaults.
func NewTransaction() *TransactionBuilder {
	now := time.Now().UTC()
	return &TransactionBuilder{
		transaction: &domain.PaymentTransaction{
			ID:                 uuid.New().String(),
			PaymentMethod:      PaymentMethod,
			Action:             domain.ActionAuthorize,
			EntityClass:        EntityClass,
			EntityIdentifier:   EntityIdentifier,
			Amount:             decimal.RequireFromString("100.00"),
			Currency:           "USD",
			Request:            make(map[string]interface{}),
			Response:           make(map[string]interface{}),
			TransactionOptions: make(map[string]interface{}),
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}
}

func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.transaction.ID = id
	return b
}

func (b *TransactionBuilder) WithAction(action domain.Action) *TransactionBuilder {
	b.transaction.Action = action
	return b
}

func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.transaction.Amount = decimal.RequireFromString(amount)
	return b
}

func (b *TransactionBuilder) WithCurrency(currency string) *TransactionBuilder {
	b.transaction.Currency = currency
	return b
}

func (b *TransactionBuilder) WithReference(reference string) *TransactionBuilder {
	b.transaction.Reference = reference
	return b
}

func (b *TransactionBuilder) WithSource(source *domain.PaymentTransaction) *TransactionBuilder {
	id := source.ID
	b.transaction.SourceTransactionID = &id
	b.transaction.EntityClass = source.EntityClass
	b.transaction.EntityIdentifier = source.EntityIdentifier
	b.transaction.PaymentMethod = source.PaymentMethod
	b.transaction.Currency = source.Currency
	return b
}

func (b *TransactionBuilder) WithEntity(class, identifier string) *TransactionBuilder {
	b.transaction.EntityClass = class
	b.transaction.EntityIdentifier = identifier
	return b
}

func (b *TransactionBuilder) WithOption(key string, value interface{}) *TransactionBuilder {
	b.transaction.SetOption(key, value)
	return b
}

// WithStoredCard sets the Stripe customer and payment method used for off-session reuse
func (b *TransactionBuilder) WithStoredCard() *TransactionBuilder {
	b.transaction.SetOption(domain.OptionPaymentMethodID, StripePMID)
	b.transaction.SetOption(domain.OptionCustomerID, StripeCustomerID)
	return b
}

func (b *TransactionBuilder) WithIdempotencyKey(key string) *TransactionBuilder {
	b.transaction.IdempotencyKey = &key
	return b
}

func (b *TransactionBuilder) CreatedAt(t time.Time) *TransactionBuilder {
	b.transaction.CreatedAt = t
	b.transaction.UpdatedAt = t
	return b
}

// Successful marks the transaction accepted by the gateway and closed
func (b *TransactionBuilder) Successful() *TransactionBuilder {
	b.transaction.Successful = true
	b.transaction.Active = false
	return b
}

// Open marks the transaction accepted and still holding funds
func (b *TransactionBuilder) Open() *TransactionBuilder {
	b.transaction.Successful = true
	b.transaction.Active = true
	return b
}

// Pending marks the transaction waiting on the customer or on processing
func (b *TransactionBuilder) Pending() *TransactionBuilder {
	b.transaction.Successful = false
	b.transaction.Active = true
	return b
}

func (b *TransactionBuilder) Failed() *TransactionBuilder {
	b.transaction.Successful = false
	b.transaction.Active = false
	return b
}

func (b *TransactionBuilder) Build() *domain.PaymentTransaction {
	t := *b.transaction
	return &t
}

// Convenience functions for common transaction scenarios

// OpenAuthorization returns an accepted, uncaptured authorization of amount
func OpenAuthorization(amount string) *domain.PaymentTransaction {
	return NewTransaction().
		WithAction(domain.ActionAuthorize).
		WithAmount(amount).
		WithReference("pi_" + uuid.NewString()[:8]).
		WithStoredCard().
		Open().
		Build()
}

// SuccessfulCharge returns an automatic-capture payment that collected amount
func SuccessfulCharge(amount string) *domain.PaymentTransaction {
	return NewTransaction().
		WithAction(domain.ActionCharge).
		WithAmount(amount).
		WithReference("pi_" + uuid.NewString()[:8]).
		WithOption(domain.OptionPaymentMethodID, StripePMID).
		Successful().
		Build()
}

// SuccessfulCapture returns a capture of auth for amount
func SuccessfulCapture(auth *domain.PaymentTransaction, amount string) *domain.PaymentTransaction {
	return NewTransaction().
		WithAction(domain.ActionCapture).
		WithSource(auth).
		WithAmount(amount).
		WithReference(auth.Reference).
		Successful().
		Build()
}
