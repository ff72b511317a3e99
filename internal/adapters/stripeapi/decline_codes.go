package stripeapi

import (
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/stripe-payment-service/pkg/errors"
)

const categoryNetwork = pkgerrors.CategoryNetworkError

// DeclineInfo describes how a Stripe error or decline code is presented
type DeclineInfo struct {
	Code               string
	Description        string
	UserMessage        string
	Category           pkgerrors.ErrorCategory
	IsRetriable        bool
	RequiresUserAction bool
}

// Stripe card decline and error codes, keyed by decline_code or code
var declineCodes = map[string]DeclineInfo{
	"insufficient_funds": {
		Code:               "insufficient_funds",
		Description:        "The card has insufficient funds",
		IsRetriable:        true,
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryInsufficientFunds,
		UserMessage:        "Insufficient funds. Please use a different payment method or add funds to your account.",
	},
	"expired_card": {
		Code:               "expired_card",
		Description:        "The card has expired",
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryExpiredCard,
		UserMessage:        "Your card has expired. Please use a different payment method.",
	},
	"incorrect_cvc": {
		Code:               "incorrect_cvc",
		Description:        "The CVC number is incorrect",
		IsRetriable:        true,
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryInvalidCard,
		UserMessage:        "The security code is incorrect. Please check your card details.",
	},
	"incorrect_number": {
		Code:               "incorrect_number",
		Description:        "The card number is incorrect",
		IsRetriable:        true,
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryInvalidCard,
		UserMessage:        "The card number is incorrect. Please check your card details.",
	},
	"card_not_supported": {
		Code:               "card_not_supported",
		Description:        "The card does not support this type of purchase",
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryInvalidCard,
		UserMessage:        "This card is not supported. Please use a different payment method.",
	},
	"currency_not_supported": {
		Code:        "currency_not_supported",
		Description: "The card does not support the specified currency",
		Category:    pkgerrors.CategoryInvalidCard,
		UserMessage: "This card cannot be charged in this currency.",
	},
	"fraudulent": {
		Code:        "fraudulent",
		Description: "Stripe suspects the charge is fraudulent",
		Category:    pkgerrors.CategoryFraud,
		UserMessage: "Transaction declined. Please contact your card issuer.",
	},
	"lost_card": {
		Code:        "lost_card",
		Description: "The card was reported lost",
		Category:    pkgerrors.CategoryFraud,
		UserMessage: "Transaction declined. Please contact your card issuer.",
	},
	"stolen_card": {
		Code:        "stolen_card",
		Description: "The card was reported stolen",
		Category:    pkgerrors.CategoryFraud,
		UserMessage: "Transaction declined. Please contact your card issuer.",
	},
	"do_not_honor": {
		Code:        "do_not_honor",
		Description: "The issuer declined the card without a reason",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Transaction declined. Please contact your card issuer or use a different payment method.",
	},
	"generic_decline": {
		Code:        "generic_decline",
		Description: "The card was declined for an unknown reason",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Transaction declined. Please try a different payment method.",
	},
	"authentication_required": {
		Code:               "authentication_required",
		Description:        "The card requires authentication that cannot happen off-session",
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryAuthenticationRequired,
		UserMessage:        "Your bank requires you to authenticate this payment.",
	},
	"payment_intent_authentication_failure": {
		Code:               "payment_intent_authentication_failure",
		Description:        "The customer failed 3D Secure authentication",
		IsRetriable:        true,
		RequiresUserAction: true,
		Category:           pkgerrors.CategoryAuthenticationRequired,
		UserMessage:        "Payment authentication failed. Please try again.",
	},
	"processing_error": {
		Code:        "processing_error",
		Description: "An error occurred while processing the card",
		IsRetriable: true,
		Category:    pkgerrors.CategorySystemError,
		UserMessage: "A processing error occurred. Please try again.",
	},
	"payment_intent_unexpected_state": {
		Code:        "payment_intent_unexpected_state",
		Description: "The payment intent is not in a state that allows the operation",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "The payment is not in a state that allows this operation.",
	},
	"charge_already_refunded": {
		Code:        "charge_already_refunded",
		Description: "The charge has already been fully refunded",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "The payment has already been refunded.",
	},
	"amount_too_large": {
		Code:        "amount_too_large",
		Description: "The amount is greater than the maximum allowed",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "The amount is too large.",
	},
}

// describeDecline returns the presentation of a decline or error code
func describeDecline(code string) DeclineInfo {
	if info, exists := declineCodes[code]; exists {
		return info
	}
	return DeclineInfo{
		Code:        code,
		Description: "Unknown decline code",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Transaction declined. Please try a different payment method or contact support.",
	}
}

// classifyError fills the category fields of a Stripe error
func classifyError(gwErr *ports.GatewayError) {
	switch gwErr.Type {
	case "card_error":
		code := gwErr.DeclineCode
		if code == "" || code == "generic_decline" {
			if gwErr.Code != "" && gwErr.Code != "card_declined" {
				code = gwErr.Code
			}
		}
		info := describeDecline(code)
		gwErr.Category = info.Category
		gwErr.UserMessage = info.UserMessage
		gwErr.Retriable = info.IsRetriable
	case "invalid_request_error", "idempotency_error":
		info, known := declineCodes[gwErr.Code]
		gwErr.Category = pkgerrors.CategoryInvalidRequest
		if known {
			gwErr.UserMessage = info.UserMessage
		}
	case "api_connection_error":
		gwErr.Category = categoryNetwork
		gwErr.Retriable = true
	default:
		gwErr.Category = pkgerrors.CategorySystemError
		gwErr.Retriable = gwErr.HTTPStatus >= 500 || gwErr.HTTPStatus == 429
	}

	if gwErr.UserMessage == "" {
		gwErr.UserMessage = "The payment could not be processed. Please try again later."
	}
}
