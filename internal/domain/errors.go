package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound         ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnInvalidState     ErrorCode = "TXN_INVALID_STATE"
	ErrorCodeTxnAlreadyProcessed ErrorCode = "TXN_ALREADY_PROCESSED"
	ErrorCodeTxnAmountExceeded   ErrorCode = "TXN_AMOUNT_EXCEEDED"
	ErrorCodeTxnSourceRequired   ErrorCode = "TXN_SOURCE_REQUIRED"

	// Action Errors (ACTION_*)
	ErrorCodeActionUnsupported ErrorCode = "ACTION_UNSUPPORTED"

	// Payment Method Errors (PM_*)
	ErrorCodePMNotConfigured ErrorCode = "PM_NOT_CONFIGURED"
	ErrorCodePMRequired      ErrorCode = "PM_REQUIRED"
	ErrorCodeCustomerMissing ErrorCode = "CUSTOMER_MISSING"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError     ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayDeclined  ErrorCode = "GATEWAY_DECLINED"
	ErrorCodeWebhookSignature ErrorCode = "WEBHOOK_SIGNATURE_INVALID"

	// Authentication Errors (AUTH_*)
	ErrorCodeUnauthenticated ErrorCode = "AUTH_UNAUTHENTICATED"
	ErrorCodeForbidden       ErrorCode = "AUTH_FORBIDDEN"

	// Idempotency Errors (IDEMPOTENCY_*)
	ErrorCodeIdempotencyConflict ErrorCode = "IDEMPOTENCY_CONFLICT"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Err: e.Err, Details: details, Code: e.Code, Message: e.Message}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTxnNotFound ||
		code == ErrorCodePMNotConfigured
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodePMRequired ||
		code == ErrorCodeCustomerMissing ||
		code == ErrorCodeActionUnsupported ||
		code == ErrorCodeTxnSourceRequired
}

// IsStateError checks if an error means the ledger does not allow the operation
func IsStateError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTxnInvalidState ||
		code == ErrorCodeTxnAmountExceeded ||
		code == ErrorCodeTxnAlreadyProcessed ||
		code == ErrorCodeIdempotencyConflict
}

// IsAuthError checks if an error rejects the caller's credentials
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeUnauthenticated || code == ErrorCodeForbidden
}

var (
	ErrTxnNotFound         = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")
	ErrTxnInvalidState     = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")
	ErrTxnAlreadyProcessed = NewDomainError(ErrorCodeTxnAlreadyProcessed, "transaction already processed")
	ErrTxnAmountExceeded   = NewDomainError(ErrorCodeTxnAmountExceeded, "amount exceeds what the source transaction allows")
	ErrTxnSourceRequired   = NewDomainError(ErrorCodeTxnSourceRequired, "source transaction required")

	ErrActionUnsupported = NewDomainError(ErrorCodeActionUnsupported, "payment action is not supported")

	ErrPMNotConfigured  = NewDomainError(ErrorCodePMNotConfigured, "payment method is not configured")
	ErrPMRequired       = NewDomainError(ErrorCodePMRequired, "stripe payment method id required")
	ErrCustomerRequired = NewDomainError(ErrorCodeCustomerMissing, "stored stripe customer required")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrGatewayError     = NewDomainError(ErrorCodeGatewayError, "payment gateway error")
	ErrWebhookSignature = NewDomainError(ErrorCodeWebhookSignature, "webhook signature verification failed")

	ErrUnauthenticated = NewDomainError(ErrorCodeUnauthenticated, "authentication required")
	ErrForbidden       = NewDomainError(ErrorCodeForbidden, "credentials lack the required scope")

	ErrIdempotencyConflict = NewDomainError(ErrorCodeIdempotencyConflict, "idempotency key conflict")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)

// ErrTransactionNotFound is returned by repositories when a lookup finds no row
var ErrTransactionNotFound = errors.New("transaction not found")
