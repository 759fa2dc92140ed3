package mysql

import (
	"context"

	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Applications: &ApplicationRepository{db: tx},
		Loans:        &LoanRepository{db: tx},
		Profiles:     &ProfileRepository{db: tx},
		Sequences:    &SequenceRepository{db: tx},
		Funds:        &FundRepository{db: tx},
		Ledger:       &LedgerRepository{db: tx},
		Payments:     &PaymentRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, code int64, fn func(r uow.Repos, a *lending.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the application row up-front to prevent races
		a, err := r.Applications.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}
