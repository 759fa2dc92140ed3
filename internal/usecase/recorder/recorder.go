// Package recorder is the single writer path for ledger transactions.
// No other component creates Transaction rows directly.
package recorder

import (
	"context"
	"fmt"
	"time"

	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"

	"github.com/shopspring/decimal"
)

// Recorder appends immutable ledger entries through the repository it
// was built with. Build it with a transaction-bound repository so the
// entry lands in the same atomic unit as the balance mutation it pairs
// with.
type Recorder struct {
	repo ledger.Repository
	now  func() time.Time
}

func New(repo ledger.Repository, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{repo: repo, now: now}
}

type Input struct {
	ClientID       uint64
	Type           ledger.Type
	ProductID      uint64
	Subject        string
	InitialBalance decimal.Decimal
	Amount         decimal.Decimal // signed: debits negative, credits positive
	Ref            string
}

func (r *Recorder) Record(ctx context.Context, in Input) (*ledger.Transaction, error) {
	if in.Amount.IsZero() {
		return nil, fmt.Errorf("%w: zero-amount ledger entry", lending.ErrValidation)
	}
	if in.Subject == "" {
		return nil, fmt.Errorf("%w: ledger entry without subject", lending.ErrValidation)
	}
	t := &ledger.Transaction{
		ClientID:       in.ClientID,
		Type:           in.Type,
		ProductID:      in.ProductID,
		Subject:        in.Subject,
		InitialBalance: in.InitialBalance,
		Amount:         in.Amount,
		Ref:            in.Ref,
		CreatedAt:      r.now().UTC(),
	}
	if err := r.repo.Append(ctx, t); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return t, nil
}
