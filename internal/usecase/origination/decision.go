package origination

import (
	"lendcore-backend/internal/domain/lending"

	"github.com/shopspring/decimal"
)

// DecisionEngine classifies a requested amount against the configured
// auto-approval ceiling. The ceiling is fixed at startup.
type DecisionEngine struct {
	ceiling decimal.Decimal
}

func NewDecisionEngine(ceiling decimal.Decimal) *DecisionEngine {
	return &DecisionEngine{ceiling: ceiling}
}

// Decide returns the initial application status: amounts up to and
// including the ceiling are auto-approved, anything above goes to
// manual review.
func (e *DecisionEngine) Decide(amount decimal.Decimal) lending.ApplicationStatus {
	if amount.LessThanOrEqual(e.ceiling) {
		return lending.StatusApproved
	}
	return lending.StatusPending
}
