package mysql

import (
	"context"

	"lendcore-backend/internal/domain/ledger"

	"gorm.io/gorm"
)

// LedgerRepository is append-only: there is no update or delete path,
// matching the immutability guarantee on transactions.
type LedgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func (r *LedgerRepository) Append(ctx context.Context, t *ledger.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *LedgerRepository) ListBySubject(ctx context.Context, subject string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	res := r.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LedgerRepository) ListByRef(ctx context.Context, ref string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	res := r.db.WithContext(ctx).
		Where("ref = ?", ref).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
