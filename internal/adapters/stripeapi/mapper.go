package stripeapi

import (
	"errors"
	"strings"

	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
	"github.com/stripe/stripe-go/v82"
)

func toPaymentIntent(pi *stripe.PaymentIntent) *ports.PaymentIntent {
	if pi == nil {
		return nil
	}

	out := &ports.PaymentIntent{
		ID:               pi.ID,
		Status:           ports.PaymentIntentStatus(pi.Status),
		Currency:         strings.ToUpper(string(pi.Currency)),
		ClientSecret:     pi.ClientSecret,
		CaptureMethod:    string(pi.CaptureMethod),
		Amount:           pi.Amount,
		AmountCapturable: pi.AmountCapturable,
		AmountReceived:   pi.AmountReceived,
		Metadata:         pi.Metadata,
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		out.PaymentMethodID = pi.PaymentMethod.ID
	}
	if pi.LatestCharge != nil {
		out.LatestChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		out.LastPaymentError = fromStripeError(pi.LastPaymentError, nil)
	}

	return out
}

func toRefund(r *stripe.Refund) *ports.Refund {
	if r == nil {
		return nil
	}

	out := &ports.Refund{
		ID:            r.ID,
		Status:        string(r.Status),
		Reason:        string(r.Reason),
		Currency:      strings.ToUpper(string(r.Currency)),
		FailureReason: string(r.FailureReason),
		Amount:        r.Amount,
		Metadata:      r.Metadata,
	}
	if r.PaymentIntent != nil {
		out.PaymentIntentID = r.PaymentIntent.ID
	}
	if r.Charge != nil {
		out.ChargeID = r.Charge.ID
	}

	return out
}

// toGatewayError converts any SDK failure into a ports.GatewayError.
// Failures without a Stripe error body are reported as connection errors.
func toGatewayError(err error) *ports.GatewayError {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fromStripeError(stripeErr, err)
	}

	return &ports.GatewayError{
		Err:         err,
		Type:        "api_connection_error",
		Message:     err.Error(),
		UserMessage: "The payment could not be processed. Please try again later.",
		Category:    categoryNetwork,
		Retriable:   true,
	}
}

func fromStripeError(se *stripe.Error, cause error) *ports.GatewayError {
	if cause == nil {
		cause = se
	}

	gwErr := &ports.GatewayError{
		Err:         cause,
		Type:        string(se.Type),
		Code:        string(se.Code),
		DeclineCode: string(se.DeclineCode),
		Message:     se.Msg,
		RequestID:   se.RequestID,
		HTTPStatus:  se.HTTPStatusCode,
	}
	if se.PaymentIntent != nil {
		// Avoid recursing through the intent's own last_payment_error
		gwErr.PaymentIntent = &ports.PaymentIntent{
			ID:               se.PaymentIntent.ID,
			Status:           ports.PaymentIntentStatus(se.PaymentIntent.Status),
			Currency:         strings.ToUpper(string(se.PaymentIntent.Currency)),
			ClientSecret:     se.PaymentIntent.ClientSecret,
			Amount:           se.PaymentIntent.Amount,
			AmountCapturable: se.PaymentIntent.AmountCapturable,
			AmountReceived:   se.PaymentIntent.AmountReceived,
		}
	}

	classifyError(gwErr)
	return gwErr
}
