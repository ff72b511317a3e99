package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
)

// PurchaseExecutor authorizes or charges depending on the integration's payment action
type PurchaseExecutor struct {
	authorize ActionExecutor
	charge    ActionExecutor
}

// NewPurchaseExecutor creates a purchase executor
func NewPurchaseExecutor(authorize, charge ActionExecutor) *PurchaseExecutor {
	return &PurchaseExecutor{authorize: authorize, charge: charge}
}

func (e *PurchaseExecutor) Supports(action domain.Action) bool {
	return action == domain.ActionPurchase
}

// Execute rewrites the transaction action and delegates
func (e *PurchaseExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	if ex.Settings.IsManualCapture() {
		ex.Transaction.Action = domain.ActionAuthorize
		return e.authorize.Execute(ctx, ex)
	}
	ex.Transaction.Action = domain.ActionCharge
	return e.charge.Execute(ctx, ex)
}
