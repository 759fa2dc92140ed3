package uow

import (
	"context"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/ledger"
	"lendcore-backend/internal/domain/lending"
	"lendcore-backend/internal/domain/payment"
)

type Repos struct {
	Applications lending.ApplicationRepository
	Loans        lending.LoanRepository
	Profiles     lending.ProfileRepository
	Sequences    lending.SequenceRepository
	Funds        fund.Repository
	Ledger       ledger.Repository
	Payments     payment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, code int64, fn func(r Repos, a *lending.Application) error) error
}
