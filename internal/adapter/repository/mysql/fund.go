package mysql

import (
	"context"
	"errors"

	"lendcore-backend/internal/domain/fund"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FundRepository struct{ db *gorm.DB }

func NewFundRepository(db *gorm.DB) *FundRepository { return &FundRepository{db: db} }

func (r *FundRepository) Get(ctx context.Context, id uint64) (*fund.Fund, error) {
	var out fund.Fund
	res := r.db.WithContext(ctx).First(&out, id)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, fund.ErrNotFound
	}
	return &out, res.Error
}

func (r *FundRepository) Create(ctx context.Context, f *fund.Fund) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// UpdateBalance is the conditional write behind fund reservations. The
// WHERE clause re-checks the balance the caller read, so a concurrent
// debit between read and write makes this a no-op (RowsAffected == 0).
func (r *FundRepository) UpdateBalance(ctx context.Context, id uint64, newBalance, expectedOld decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&fund.Fund{}).
		Where("id = ? AND balance = ?", id, expectedOld).
		Update("balance", newBalance)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
