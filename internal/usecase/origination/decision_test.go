package origination

import (
	"testing"

	"lendcore-backend/internal/domain/lending"

	"github.com/shopspring/decimal"
)

func TestDecide_Boundaries(t *testing.T) {
	eng := NewDecisionEngine(decimal.NewFromInt(5000))

	cases := []struct {
		amount string
		want   lending.ApplicationStatus
	}{
		{"4999.99", lending.StatusApproved},
		{"5000", lending.StatusApproved}, // ceiling itself is auto-approved
		{"5000.01", lending.StatusPending},
		{"100000", lending.StatusPending},
		{"0.01", lending.StatusApproved},
	}
	for _, tc := range cases {
		got := eng.Decide(decimal.RequireFromString(tc.amount))
		if got != tc.want {
			t.Fatalf("Decide(%s) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}
