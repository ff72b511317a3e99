package payment

import (
	"github.com/kevin07696/stripe-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerState is the computed state of one payable entity's transactions.
// Computed by replaying the history in chronological order.
type LedgerState struct {
	// Newest open authorization (nil when none holds funds)
	ActiveAuthorizationID *string
	AuthorizedAmount      decimal.Decimal
	AuthorizationRef      string

	CapturedAmount decimal.Decimal
	RefundedAmount decimal.Decimal

	// Accepted authorizations still holding funds, in creation order
	open  map[string]openAuthorization
	order []string
	// Authorizations waiting for customer authentication
	pending  map[string]bool
	canceled map[string]bool

	// re_authorize transaction -> the authorization it replaced
	reAuthorized map[string]string
	// authorization -> the authorization that replaced it
	replacedBy map[string]string

	// Collected and refunded amounts per capture or charge transaction
	captured map[string]decimal.Decimal
	refunded map[string]decimal.Decimal
}

type openAuthorization struct {
	amount    decimal.Decimal
	reference string
}

// ComputeLedgerState replays transactions of one entity.
// Transactions MUST be ordered by created_at ASC.
func ComputeLedgerState(transactions []*domain.PaymentTransaction) *LedgerState {
	state := &LedgerState{
		open:         make(map[string]openAuthorization),
		pending:      make(map[string]bool),
		canceled:     make(map[string]bool),
		reAuthorized: make(map[string]string),
		replacedBy:   make(map[string]string),
		captured:     make(map[string]decimal.Decimal),
		refunded:     make(map[string]decimal.Decimal),
	}

	for _, t := range transactions {
		if t.Action == domain.ActionReAuthorize && t.HasSource() {
			state.reAuthorized[t.ID] = *t.SourceTransactionID
		}

		if !t.Successful {
			if t.Action == domain.ActionAuthorize && t.Active {
				state.pending[t.ID] = true
			}
			continue
		}

		switch t.Action {
		case domain.ActionAuthorize:
			if t.HasSource() {
				if previous, ok := state.reAuthorized[*t.SourceTransactionID]; ok {
					state.replacedBy[previous] = t.ID
				}
			}
			if t.Active {
				state.open[t.ID] = openAuthorization{amount: t.Amount, reference: t.Reference}
				state.order = append(state.order, t.ID)
			}

		case domain.ActionCharge:
			state.captured[t.ID] = t.Amount
			state.CapturedAmount = state.CapturedAmount.Add(t.Amount)

		case domain.ActionCapture:
			state.captured[t.ID] = t.Amount
			state.CapturedAmount = state.CapturedAmount.Add(t.Amount)
			state.release(t.SourceTransactionID)

		case domain.ActionCancel:
			if state.release(t.SourceTransactionID) {
				state.canceled[*t.SourceTransactionID] = true
			}

		case domain.ActionRefund:
			if t.HasSource() {
				source := *t.SourceTransactionID
				state.refunded[source] = state.refunded[source].Add(t.Amount)
			}
			state.RefundedAmount = state.RefundedAmount.Add(t.Amount)
		}
	}

	for i := len(state.order) - 1; i >= 0; i-- {
		id := state.order[i]
		if auth, ok := state.open[id]; ok {
			state.ActiveAuthorizationID = &id
			state.AuthorizedAmount = auth.amount
			state.AuthorizationRef = auth.reference
			break
		}
	}

	return state
}

func (s *LedgerState) release(sourceID *string) bool {
	if sourceID == nil {
		return false
	}
	_, open := s.open[*sourceID]
	held := open || s.pending[*sourceID]
	delete(s.open, *sourceID)
	delete(s.pending, *sourceID)
	return held
}

// Replacement follows re-authorizations from authorizationID and returns the
// open authorization that now holds its funds
func (s *LedgerState) Replacement(authorizationID string) (string, bool) {
	current := authorizationID
	for i := 0; i <= len(s.replacedBy); i++ {
		next, ok := s.replacedBy[current]
		if !ok {
			break
		}
		current = next
	}
	if current == authorizationID {
		return "", false
	}
	if _, ok := s.open[current]; !ok {
		return "", false
	}
	return current, true
}

// Canceled reports whether authorizationID was released by a cancel
func (s *LedgerState) Canceled(authorizationID string) bool {
	return s.canceled[authorizationID]
}

func (s *LedgerState) closedReason(authorizationID string) string {
	switch {
	case s.replacedBy[authorizationID] != "":
		return "authorization was replaced by a newer one"
	case s.canceled[authorizationID]:
		return "authorization was canceled"
	default:
		return "no active authorization found"
	}
}

// CanCapture checks if authorizationID may be captured for amount
func (s *LedgerState) CanCapture(authorizationID string, amount decimal.Decimal) (bool, string) {
	auth, ok := s.open[authorizationID]
	if !ok {
		return false, s.closedReason(authorizationID)
	}
	if amount.GreaterThan(auth.amount) {
		return false, "capture amount exceeds authorized amount"
	}
	return true, ""
}

// CanCancel checks if a cancel of authorizationID is allowed.
// Authorizations still waiting for authentication can be canceled too.
func (s *LedgerState) CanCancel(authorizationID string) (bool, string) {
	if _, ok := s.open[authorizationID]; ok || s.pending[authorizationID] {
		return true, ""
	}
	return false, s.closedReason(authorizationID)
}

// RefundableAmount returns what is left to refund of a capture or charge
func (s *LedgerState) RefundableAmount(sourceID string) decimal.Decimal {
	remaining := s.captured[sourceID].Sub(s.refunded[sourceID])
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CanRefund checks if refunding amount from sourceID is allowed
func (s *LedgerState) CanRefund(sourceID string, amount decimal.Decimal) (bool, string) {
	remaining := s.RefundableAmount(sourceID)
	if remaining.IsZero() {
		return false, "no captured amount to refund"
	}
	if amount.GreaterThan(remaining) {
		return false, "refund amount exceeds remaining refundable amount"
	}
	return true, ""
}
