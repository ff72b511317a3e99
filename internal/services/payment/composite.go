package payment

import (
	"context"

	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"go.uber.org/zap"
)

// CompositeExecutor dispatches to the first executor supporting the action
type CompositeExecutor struct {
	executors []ActionExecutor
}

// NewCompositeExecutor creates a dispatcher over executors, tried in order
func NewCompositeExecutor(executors ...ActionExecutor) *CompositeExecutor {
	return &CompositeExecutor{executors: executors}
}

// NewDefaultExecutor wires every Payment Intent executor
func NewDefaultExecutor(logger *zap.Logger) *CompositeExecutor {
	authorize := NewAuthorizeExecutor(logger)
	charge := NewChargeExecutor(logger)
	cancel := NewCancelExecutor(logger)

	return NewCompositeExecutor(
		NewPurchaseExecutor(authorize, charge),
		authorize,
		charge,
		NewConfirmExecutor(logger),
		NewCaptureExecutor(logger),
		cancel,
		NewRefundExecutor(logger),
		NewReAuthorizeExecutor(cancel, authorize, logger),
	)
}

func (c *CompositeExecutor) Supports(action domain.Action) bool {
	return c.find(action) != nil
}

func (c *CompositeExecutor) Execute(ctx context.Context, ex *Execution) (*domain.ActionResult, error) {
	executor := c.find(ex.Transaction.Action)
	if executor == nil {
		return nil, domain.ErrActionUnsupported.WithDetail("action", string(ex.Transaction.Action))
	}
	return executor.Execute(ctx, ex)
}

func (c *CompositeExecutor) find(action domain.Action) ActionExecutor {
	for _, e := range c.executors {
		if e.Supports(action) {
			return e
		}
	}
	return nil
}
