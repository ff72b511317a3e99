package errors

import (
	"fmt"
)

// ErrorCategory groups gateway failures by what the customer or caller can do about them
type ErrorCategory string

const (
	CategoryApproved               ErrorCategory = "approved"
	CategoryDeclined               ErrorCategory = "declined"
	CategoryInsufficientFunds      ErrorCategory = "insufficient_funds"
	CategoryInvalidCard            ErrorCategory = "invalid_card"
	CategoryExpiredCard            ErrorCategory = "expired_card"
	CategoryFraud                  ErrorCategory = "fraud"
	CategoryAuthenticationRequired ErrorCategory = "authentication_required"
	CategorySystemError            ErrorCategory = "system_error"
	CategoryNetworkError           ErrorCategory = "network_error"
	CategoryInvalidRequest         ErrorCategory = "invalid_request"
)

// PaymentError is the customer-facing view of a failed gateway call
type PaymentError struct {
	Details        map[string]interface{} `json:"details,omitempty"`
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	GatewayMessage string                 `json:"gateway_message,omitempty"`
	Category       ErrorCategory          `json:"category"`
	IsRetriable    bool                   `json:"retriable"`
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPaymentError creates a payment error with an empty details map
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Details:     make(map[string]interface{}),
	}
}

