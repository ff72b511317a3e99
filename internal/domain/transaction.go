package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action names one step in a payment's lifecycle
type Action string

const (
	ActionPurchase    Action = "purchase"     // Authorize or charge, depending on the payment action setting
	ActionAuthorize   Action = "authorize"    // Manual-capture payment intent
	ActionCharge      Action = "charge"       // Automatic-capture payment intent
	ActionConfirm     Action = "confirm"      // Confirm an intent after customer authentication
	ActionCapture     Action = "capture"      // Capture an authorized intent
	ActionCancel      Action = "cancel"       // Release an authorization
	ActionRefund      Action = "refund"       // Return captured funds
	ActionReAuthorize Action = "re_authorize" // Replace an expiring authorization
)

// Valid reports whether the action is one the service knows how to execute
func (a Action) Valid() bool {
	switch a {
	case ActionPurchase, ActionAuthorize, ActionCharge, ActionConfirm,
		ActionCapture, ActionCancel, ActionRefund, ActionReAuthorize:
		return true
	}
	return false
}

// Transaction option keys stored in TransactionOptions
const (
	OptionPaymentMethodID = "payment_method_id"
	OptionCustomerID      = "customer_id"
	OptionCustomerEmail   = "customer_email"
	OptionSaveForLater    = "save_for_later_use"
	OptionCancelReason    = "cancel_reason"
	OptionRefundReason    = "refund_reason"
	OptionReturnURL       = "return_url"
	OptionOffSession      = "off_session"
	OptionRequestedBy     = "requested_by"
)

// PaymentTransaction is the local ledger record of one payment step.
// Successful tells whether the gateway accepted the step, Active whether the
// step still holds something open on the gateway side (an uncaptured
// authorization, or an intent waiting for customer authentication).
type PaymentTransaction struct {
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	SourceTransactionID *string                `json:"source_transaction_id,omitempty"`
	IdempotencyKey      *string                `json:"idempotency_key,omitempty"`
	Request             map[string]interface{} `json:"request,omitempty"`
	Response            map[string]interface{} `json:"response,omitempty"`
	TransactionOptions  map[string]interface{} `json:"transaction_options,omitempty"`
	ID                  string                 `json:"id"`
	PaymentMethod       string                 `json:"payment_method"`
	Action              Action                 `json:"action"`
	EntityClass         string                 `json:"entity_class"`
	EntityIdentifier    string                 `json:"entity_identifier"`
	Currency            string                 `json:"currency"`
	Reference           string                 `json:"reference,omitempty"`
	Amount              decimal.Decimal        `json:"amount"`
	Successful          bool                   `json:"successful"`
	Active              bool                   `json:"active"`
}

// NewTransaction creates an unsent transaction with a fresh identifier
func NewTransaction(paymentMethod string, action Action, amount decimal.Decimal, currency string) *PaymentTransaction {
	now := time.Now().UTC()
	return &PaymentTransaction{
		ID:                 uuid.New().String(),
		PaymentMethod:      paymentMethod,
		Action:             action,
		Amount:             amount,
		Currency:           currency,
		Request:            make(map[string]interface{}),
		Response:           make(map[string]interface{}),
		TransactionOptions: make(map[string]interface{}),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NewDependentTransaction creates a transaction for the same payable entity
// that points at source
func NewDependentTransaction(source *PaymentTransaction, action Action, amount decimal.Decimal) *PaymentTransaction {
	t := NewTransaction(source.PaymentMethod, action, amount, source.Currency)
	t.EntityClass = source.EntityClass
	t.EntityIdentifier = source.EntityIdentifier
	sourceID := source.ID
	t.SourceTransactionID = &sourceID
	return t
}

// IsPending returns true while the gateway still waits on the customer or on processing
func (t *PaymentTransaction) IsPending() bool {
	return t.Active && !t.Successful
}

// IsOpenAuthorization returns true for an accepted, uncaptured authorization
func (t *PaymentTransaction) IsOpenAuthorization() bool {
	return t.Action == ActionAuthorize && t.Successful && t.Active
}

// CanBeCaptured returns true if the transaction is an open authorization
func (t *PaymentTransaction) CanBeCaptured() bool {
	return t.IsOpenAuthorization()
}

// CanBeCanceled returns true if the transaction still holds an authorization,
// including one waiting for customer authentication
func (t *PaymentTransaction) CanBeCanceled() bool {
	return t.Action == ActionAuthorize && t.Active
}

// CanBeRefunded returns true if funds were collected by this transaction
func (t *PaymentTransaction) CanBeRefunded() bool {
	return t.Successful && (t.Action == ActionCapture || t.Action == ActionCharge)
}

// CanBeConfirmed returns true if the transaction waits for confirmation
func (t *PaymentTransaction) CanBeConfirmed() bool {
	return t.IsPending() && (t.Action == ActionAuthorize || t.Action == ActionCharge)
}

// CanBeReAuthorized returns true for open authorizations created at or before now-after
func (t *PaymentTransaction) CanBeReAuthorized(now time.Time, after time.Duration) bool {
	return t.IsOpenAuthorization() && !t.CreatedAt.After(now.Add(-after))
}

// HasSource returns true if the transaction depends on another transaction
func (t *PaymentTransaction) HasSource() bool {
	return t.SourceTransactionID != nil && *t.SourceTransactionID != ""
}

// Option returns a string transaction option, or "" when absent
func (t *PaymentTransaction) Option(key string) string {
	if t.TransactionOptions == nil {
		return ""
	}
	if v, ok := t.TransactionOptions[key].(string); ok {
		return v
	}
	return ""
}

// BoolOption returns a boolean transaction option
func (t *PaymentTransaction) BoolOption(key string) bool {
	if t.TransactionOptions == nil {
		return false
	}
	switch v := t.TransactionOptions[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

// SetOption stores a transaction option
func (t *PaymentTransaction) SetOption(key string, value interface{}) {
	if t.TransactionOptions == nil {
		t.TransactionOptions = make(map[string]interface{})
	}
	t.TransactionOptions[key] = value
}

// SetResponseValue stores a value in the gateway response
func (t *PaymentTransaction) SetResponseValue(key string, value interface{}) {
	if t.Response == nil {
		t.Response = make(map[string]interface{})
	}
	t.Response[key] = value
}

// ResponseValue returns a string value from the gateway response
func (t *PaymentTransaction) ResponseValue(key string) string {
	if t.Response == nil {
		return ""
	}
	if v, ok := t.Response[key].(string); ok {
		return v
	}
	return ""
}

// CopyOptions copies the stored customer and payment method details from other
func (t *PaymentTransaction) CopyOptions(other *PaymentTransaction) {
	for k, v := range other.TransactionOptions {
		t.SetOption(k, v)
	}
}

// ActionResult is what an executed action reports back to the caller
type ActionResult struct {
	TransactionID   string `json:"transaction_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ClientSecret    string `json:"payment_intent_client_secret,omitempty"`
	Message         string `json:"message,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	Successful      bool   `json:"successful"`
	RequiresAction  bool   `json:"requires_action"`
}
