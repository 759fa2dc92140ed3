package fundguard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/testutil/memstore"
	"lendcore-backend/internal/usecase/recorder"

	"github.com/shopspring/decimal"
)

func newGuard(t *testing.T, balance string) (*Guard, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	err := store.Funds().Create(context.Background(), &fund.Fund{
		ID:      1,
		Name:    "main",
		Balance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("seed fund: %v", err)
	}
	return New(store.Funds(), slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func balanceOf(t *testing.T, store *memstore.Store) decimal.Decimal {
	t.Helper()
	f, err := store.Funds().Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get fund: %v", err)
	}
	return f.Balance
}

func TestSufficient_Boundary(t *testing.T) {
	g, _ := newGuard(t, "100")
	ctx := context.Background()

	cases := []struct {
		amount string
		want   bool
	}{
		{"99.99", true},
		{"100", true}, // exact balance may be disbursed
		{"100.01", false},
	}
	for _, tc := range cases {
		ok, err := g.Sufficient(ctx, 1, decimal.RequireFromString(tc.amount))
		if err != nil {
			t.Fatalf("Sufficient(%s): %v", tc.amount, err)
		}
		if ok != tc.want {
			t.Fatalf("Sufficient(%s) = %v, want %v", tc.amount, ok, tc.want)
		}
	}
}

func TestReserve_DebitsAndRejects(t *testing.T) {
	g, store := newGuard(t, "500")
	ctx := context.Background()

	res, err := g.Reserve(ctx, 1, decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !res.InitialBalance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("initial balance = %s", res.InitialBalance)
	}
	if got := balanceOf(t, store); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("balance after reserve = %s", got)
	}

	if _, err := g.Reserve(ctx, 1, decimal.NewFromInt(300)); !errors.Is(err, fund.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, store); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("failed reserve must not move money, balance = %s", got)
	}
}

func TestReserve_NeverOversubscribes(t *testing.T) {
	g, store := newGuard(t, "1000")
	ctx := context.Background()
	amount := decimal.NewFromInt(300)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var reserved decimal.Decimal
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := g.Reserve(ctx, 1, amount)
			switch {
			case err == nil:
				mu.Lock()
				reserved = reserved.Add(res.Amount)
				mu.Unlock()
			case errors.Is(err, fund.ErrInsufficientFunds):
			case errors.Is(err, lending.ErrConcurrencyConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if reserved.GreaterThan(decimal.NewFromInt(1000)) {
		t.Fatalf("oversubscribed: reserved %s from 1000", reserved)
	}
	want := decimal.NewFromInt(1000).Sub(reserved)
	if got := balanceOf(t, store); !got.Equal(want) {
		t.Fatalf("balance = %s, want %s", got, want)
	}
}

func TestRelease_RestoresOnce(t *testing.T) {
	g, store := newGuard(t, "500")
	ctx := context.Background()

	res, err := g.Reserve(ctx, 1, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := g.Release(ctx, res); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := balanceOf(t, store); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance after release = %s", got)
	}

	// second release is a no-op
	if err := g.Release(ctx, res); err != nil {
		t.Fatalf("double Release: %v", err)
	}
	if got := balanceOf(t, store); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("double release moved money, balance = %s", got)
	}
}

func TestCommit_WritesReconcilingEntry(t *testing.T) {
	g, store := newGuard(t, "500")
	ctx := context.Background()

	res, err := g.Reserve(ctx, 1, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	txn, err := g.Commit(ctx, recorder.New(store.Ledger(), nil), res, CommitInput{
		ClientID:  7,
		Type:      ledger.TypeDisbursement,
		ProductID: 1,
		Ref:       "ref-1",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if !txn.Amount.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("entry amount = %s, want -200", txn.Amount)
	}
	if got := balanceOf(t, store); !txn.BalanceAfter().Equal(got) {
		t.Fatalf("entry does not reconcile: %s + %s != %s", txn.InitialBalance, txn.Amount, got)
	}
	if txn.Subject != ledger.FundSubject(1) {
		t.Fatalf("subject = %q", txn.Subject)
	}
}

func TestCommit_RejectsReleasedReservation(t *testing.T) {
	g, store := newGuard(t, "500")
	ctx := context.Background()

	res, err := g.Reserve(ctx, 1, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := g.Release(ctx, res); err != nil {
		t.Fatalf("Release: %v", err)
	}
	_, err = g.Commit(ctx, recorder.New(store.Ledger(), nil), res, CommitInput{ClientID: 1, Type: ledger.TypeDisbursement})
	if !errors.Is(err, lending.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestCredit_ReturnsPriorBalance(t *testing.T) {
	g, store := newGuard(t, "500")
	ctx := context.Background()

	prior, err := g.Credit(ctx, 1, decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if !prior.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("prior = %s, want 500", prior)
	}
	if got := balanceOf(t, store); !got.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("balance = %s, want 750", got)
	}
}
