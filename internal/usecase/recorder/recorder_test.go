package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/testutil/memstore"

	"github.com/shopspring/decimal"
)

func TestRecord_StampsInjectedClock(t *testing.T) {
	store := memstore.New()
	at := time.Date(2021, 6, 30, 10, 0, 0, 0, time.UTC)
	rec := New(store.Ledger(), func() time.Time { return at })

	txn, err := rec.Record(context.Background(), Input{
		ClientID:       1,
		Type:           ledger.TypeDisbursement,
		ProductID:      1,
		Subject:        ledger.FundSubject(1),
		InitialBalance: decimal.NewFromInt(5000),
		Amount:         decimal.NewFromInt(-3000),
		Ref:            "ref-1",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !txn.CreatedAt.Equal(at) {
		t.Fatalf("CreatedAt = %v, want %v", txn.CreatedAt, at)
	}
	if !txn.BalanceAfter().Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("BalanceAfter = %s", txn.BalanceAfter())
	}
}

func TestRecord_RejectsInvalidInput(t *testing.T) {
	rec := New(memstore.New().Ledger(), nil)
	ctx := context.Background()

	_, err := rec.Record(ctx, Input{Subject: ledger.FundSubject(1), Amount: decimal.Zero})
	if !errors.Is(err, lending.ErrValidation) {
		t.Fatalf("zero amount: got %v", err)
	}
	_, err = rec.Record(ctx, Input{Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, lending.ErrValidation) {
		t.Fatalf("missing subject: got %v", err)
	}
}
