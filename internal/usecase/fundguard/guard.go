// Package fundguard gates disbursements on fund solvency using the
// reserve/commit/release pattern. All balance arithmetic happens here;
// other components treat fund balances as read-only.
package fundguard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/usecase/recorder"

	"github.com/shopspring/decimal"
)

const (
	defaultMaxRetries = 5
	defaultBackoff    = 10 * time.Millisecond
)

type Guard struct {
	funds      fund.Repository
	maxRetries int
	backoff    time.Duration
	log        *slog.Logger
}

func New(funds fund.Repository, log *slog.Logger) *Guard {
	return &Guard{
		funds:      funds,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		log:        log,
	}
}

// Reservation is a provisional debit against a fund. It is either
// committed (paired with a ledger entry) or released (credited back).
type Reservation struct {
	FundID         uint64
	Amount         decimal.Decimal
	InitialBalance decimal.Decimal // balance before the debit
	released       bool
}

// Sufficient is an advisory read. It must never be the sole gate for a
// disbursement; Reserve re-checks atomically.
func (g *Guard) Sufficient(ctx context.Context, fundID uint64, amount decimal.Decimal) (bool, error) {
	f, err := g.funds.Get(ctx, fundID)
	if err != nil {
		return false, fmt.Errorf("load fund %d: %w", fundID, err)
	}
	return f.Balance.GreaterThanOrEqual(amount), nil
}

// Reserve atomically checks and debits the fund. Exact-balance
// disbursement is permitted (balance >= amount). A lost compare-and-swap
// race is retried with backoff up to the bounded limit, after which
// ErrConcurrencyConflict is surfaced.
func (g *Guard) Reserve(ctx context.Context, fundID uint64, amount decimal.Decimal) (*Reservation, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reservation amount must be positive", lending.ErrValidation)
	}
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		f, err := g.funds.Get(ctx, fundID)
		if err != nil {
			return nil, fmt.Errorf("load fund %d: %w", fundID, err)
		}
		if f.Balance.LessThan(amount) {
			return nil, fund.ErrInsufficientFunds
		}
		ok, err := g.funds.UpdateBalance(ctx, fundID, f.Balance.Sub(amount), f.Balance)
		if err != nil {
			return nil, fmt.Errorf("debit fund %d: %w", fundID, err)
		}
		if ok {
			return &Reservation{FundID: fundID, Amount: amount, InitialBalance: f.Balance}, nil
		}
		if err := g.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, lending.ErrConcurrencyConflict
}

type CommitInput struct {
	ClientID  uint64
	Type      ledger.Type
	ProductID uint64
	Ref       string
}

// Commit writes the ledger entry paired with the reserved debit. Call
// it with a recorder bound to the transaction that finalizes the
// disbursement, so the entry and the loan state commit or roll back
// together. If that transaction does not commit, Release the
// reservation.
func (g *Guard) Commit(ctx context.Context, rec *recorder.Recorder, res *Reservation, in CommitInput) (*ledger.Transaction, error) {
	if res == nil || res.released {
		return nil, fmt.Errorf("%w: commit on inactive reservation", lending.ErrValidation)
	}
	return rec.Record(ctx, recorder.Input{
		ClientID:       in.ClientID,
		Type:           in.Type,
		ProductID:      in.ProductID,
		Subject:        ledger.FundSubject(res.FundID),
		InitialBalance: res.InitialBalance,
		Amount:         res.Amount.Neg(),
		Ref:            in.Ref,
	})
}

// Release is the compensating action: it credits the reserved amount
// back to the fund. Safe to call more than once; only the first call
// moves money.
func (g *Guard) Release(ctx context.Context, res *Reservation) error {
	if res == nil || res.released {
		return nil
	}
	if _, err := g.Credit(ctx, res.FundID, res.Amount); err != nil {
		return fmt.Errorf("release reservation on fund %d: %w", res.FundID, err)
	}
	res.released = true
	g.log.Info("reservation released", "fund_id", res.FundID, "amount", res.Amount)
	return nil
}

// Credit adds amount to the fund through the same bounded
// compare-and-swap loop as Reserve and returns the balance observed
// before the credit.
func (g *Guard) Credit(ctx context.Context, fundID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: credit amount must be positive", lending.ErrValidation)
	}
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		f, err := g.funds.Get(ctx, fundID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load fund %d: %w", fundID, err)
		}
		ok, err := g.funds.UpdateBalance(ctx, fundID, f.Balance.Add(amount), f.Balance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("credit fund %d: %w", fundID, err)
		}
		if ok {
			return f.Balance, nil
		}
		if err := g.wait(ctx, attempt); err != nil {
			return decimal.Zero, err
		}
	}
	return decimal.Zero, lending.ErrConcurrencyConflict
}

func (g *Guard) wait(ctx context.Context, attempt int) error {
	d := g.backoff << uint(attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
