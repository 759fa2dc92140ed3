package lending

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestApplicationTransition(t *testing.T) {
	at := time.Date(2021, 6, 30, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		from ApplicationStatus
		to   ApplicationStatus
		ok   bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to disbursed", StatusPending, StatusDisbursed, false},
		{"approved to disbursed", StatusApproved, StatusDisbursed, true},
		{"approved to rejected", StatusApproved, StatusRejected, false},
		{"rejected is terminal", StatusRejected, StatusApproved, false},
		{"disbursed is terminal", StatusDisbursed, StatusApproved, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Application{Status: tc.from}
			err := a.Transition(tc.to, at)
			if tc.ok {
				if err != nil {
					t.Fatalf("Transition(%s -> %s): %v", tc.from, tc.to, err)
				}
				if a.Status != tc.to || !a.StatusUpdatedAt.Equal(at) {
					t.Fatalf("state not updated: %+v", a)
				}
				return
			}
			if err != ErrInvalidTransition {
				t.Fatalf("want ErrInvalidTransition, got %v", err)
			}
			if a.Status != tc.from {
				t.Fatalf("failed transition mutated status to %s", a.Status)
			}
		})
	}
}

func TestLoanOutstanding(t *testing.T) {
	l := Loan{
		Amount:       decimal.NewFromInt(3000),
		RepaidAmount: decimal.NewFromInt(1000),
		WaivedAmount: decimal.NewFromInt(500),
	}
	interest := decimal.NewFromInt(900)

	if got := l.Outstanding(interest); !got.Equal(decimal.NewFromInt(2400)) {
		t.Fatalf("outstanding = %s, want 2400", got)
	}

	// overpayment floors at zero
	l.RepaidAmount = decimal.NewFromInt(5000)
	if got := l.Outstanding(interest); !got.IsZero() {
		t.Fatalf("overpaid outstanding = %s, want 0", got)
	}
}
