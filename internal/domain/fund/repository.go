package fund

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Get(ctx context.Context, id uint64) (*Fund, error)
	Create(ctx context.Context, f *Fund) error
	// UpdateBalance performs a conditional (compare-and-swap) balance
	// update: it succeeds only if the stored balance still equals
	// expectedOld. Returns false on a lost race, with no change applied.
	UpdateBalance(ctx context.Context, id uint64, newBalance, expectedOld decimal.Decimal) (bool, error)
}
