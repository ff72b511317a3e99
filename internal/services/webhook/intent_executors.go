package webhook

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/kevin07696/stripe-payment-service/internal/domain/ports"
)

// IntentCanceledExecutor releases authorizations canceled outside this service,
// e.g. from the Stripe dashboard or by expiry
type IntentCanceledExecutor struct{}

func (e *IntentCanceledExecutor) Supports(eventType string) bool {
	return eventType == ports.EventPaymentIntentCanceled
}

func (e *IntentCanceledExecutor) Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error) {
	pi := r.Event.PaymentIntent
	if pi == nil {
		return nil, nil
	}

	txs, err := r.find(ctx, pi.ID, domain.ActionAuthorize, domain.ActionCharge)
	if err != nil {
		return nil, err
	}

	if auth := firstMatching(txs, func(t *domain.PaymentTransaction) bool {
		return t.Action == domain.ActionAuthorize && t.Active
	}); auth != nil {
		cancel := domain.NewDependentTransaction(auth, domain.ActionCancel, auth.Amount)
		cancel.Reference = pi.ID
		cancel.Successful = true
		cancel.SetResponseValue("payment_intent_id", pi.ID)
		cancel.SetResponseValue("status", string(pi.Status))
		if err := r.create(ctx, cancel); err != nil {
			return nil, err
		}

		auth.Active = false
		if err := r.update(ctx, auth); err != nil {
			return nil, err
		}
		return []*domain.PaymentTransaction{cancel, auth}, nil
	}

	// An abandoned charge still waiting on the customer
	if charge := firstMatching(txs, func(t *domain.PaymentTransaction) bool {
		return t.Action == domain.ActionCharge && t.IsPending()
	}); charge != nil {
		charge.Active = false
		charge.SetResponseValue("status", string(pi.Status))
		if err := r.update(ctx, charge); err != nil {
			return nil, err
		}
		return []*domain.PaymentTransaction{charge}, nil
	}

	return nil, nil
}

// IntentSucceededExecutor records captures made outside this service and
// completes charges that finished asynchronously
type IntentSucceededExecutor struct{}

func (e *IntentSucceededExecutor) Supports(eventType string) bool {
	return eventType == ports.EventPaymentIntentSucceeded
}

func (e *IntentSucceededExecutor) Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error) {
	pi := r.Event.PaymentIntent
	if pi == nil {
		return nil, nil
	}

	txs, err := r.find(ctx, pi.ID, domain.ActionAuthorize, domain.ActionCharge)
	if err != nil {
		return nil, err
	}

	if auth := firstMatching(txs, func(t *domain.PaymentTransaction) bool {
		return t.IsOpenAuthorization()
	}); auth != nil {
		amount := auth.Amount
		if pi.AmountReceived > 0 {
			amount = domain.FromMinorUnits(pi.AmountReceived, auth.Currency)
		}
		capture := domain.NewDependentTransaction(auth, domain.ActionCapture, amount)
		capture.Reference = pi.ID
		capture.Successful = true
		capture.SetResponseValue("payment_intent_id", pi.ID)
		capture.SetResponseValue("status", string(pi.Status))
		if pi.LatestChargeID != "" {
			capture.SetResponseValue("charge_id", pi.LatestChargeID)
		}
		if err := r.create(ctx, capture); err != nil {
			return nil, err
		}

		auth.Active = false
		if err := r.update(ctx, auth); err != nil {
			return nil, err
		}
		return []*domain.PaymentTransaction{capture, auth}, nil
	}

	if charge := firstMatching(txs, func(t *domain.PaymentTransaction) bool {
		return t.Action == domain.ActionCharge && t.IsPending()
	}); charge != nil {
		charge.Successful = true
		charge.Active = false
		charge.SetResponseValue("status", string(pi.Status))
		if pi.LatestChargeID != "" {
			charge.SetResponseValue("charge_id", pi.LatestChargeID)
		}
		if err := r.update(ctx, charge); err != nil {
			return nil, err
		}
		return []*domain.PaymentTransaction{charge}, nil
	}

	return nil, nil
}

// AmountCapturableExecutor opens authorizations whose customer authentication
// completed after the authorize call returned
type AmountCapturableExecutor struct{}

func (e *AmountCapturableExecutor) Supports(eventType string) bool {
	return eventType == ports.EventPaymentIntentAmountCapturable
}

func (e *AmountCapturableExecutor) Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error) {
	pi := r.Event.PaymentIntent
	if pi == nil {
		return nil, nil
	}

	txs, err := r.find(ctx, pi.ID, domain.ActionAuthorize)
	if err != nil {
		return nil, err
	}
	auth := firstMatching(txs, (*domain.PaymentTransaction).IsPending)
	if auth == nil {
		return nil, nil
	}

	auth.Successful = true
	auth.Active = true
	auth.SetResponseValue("status", string(pi.Status))
	if err := r.update(ctx, auth); err != nil {
		return nil, err
	}
	return []*domain.PaymentTransaction{auth}, nil
}

// PaymentFailedExecutor closes pending intents the customer failed to authenticate
type PaymentFailedExecutor struct{}

func (e *PaymentFailedExecutor) Supports(eventType string) bool {
	return eventType == ports.EventPaymentIntentPaymentFailed
}

func (e *PaymentFailedExecutor) Execute(ctx context.Context, r *Reconciliation) ([]*domain.PaymentTransaction, error) {
	pi := r.Event.PaymentIntent
	if pi == nil {
		return nil, nil
	}

	txs, err := r.find(ctx, pi.ID, domain.ActionAuthorize, domain.ActionCharge)
	if err != nil {
		return nil, err
	}
	t := firstMatching(txs, (*domain.PaymentTransaction).IsPending)
	if t == nil {
		return nil, nil
	}

	t.Successful = false
	t.Active = false
	t.SetResponseValue("status", string(pi.Status))
	if lpe := pi.LastPaymentError; lpe != nil {
		t.SetResponseValue("last_payment_error", lpe.Message)
		t.SetResponseValue("error", lpe.Message)
		if lpe.Code != "" {
			t.SetResponseValue("code", lpe.Code)
		}
		if lpe.DeclineCode != "" {
			t.SetResponseValue("decline_code", lpe.DeclineCode)
		}
	}
	if err := r.update(ctx, t); err != nil {
		return nil, err
	}
	return []*domain.PaymentTransaction{t}, nil
}
