package lending

import "context"

type ApplicationRepository interface {
	Create(ctx context.Context, a *Application) error
	Save(ctx context.Context, a *Application) error
	GetByCode(ctx context.Context, code int64) (*Application, error)
	// GetByCodeForUpdate locks the application row for the remainder of
	// the enclosing transaction.
	GetByCodeForUpdate(ctx context.Context, code int64) (*Application, error)
	// GetOpenByClientProduct returns a pending or approved application
	// for the (client, product) pair, if one exists.
	GetOpenByClientProduct(ctx context.Context, clientID, productID uint64) (*Application, error)
}

type LoanRepository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	GetByApplicationID(ctx context.Context, applicationID uint64) (*Loan, error)
}

type ProfileRepository interface {
	// Ensure creates the (client, product) profile if absent and returns
	// it. The composite uniqueness constraint makes concurrent Ensure
	// calls converge on a single row.
	Ensure(ctx context.Context, clientID, productID uint64) (*LoanProfile, error)
	SetActive(ctx context.Context, clientID, productID uint64, active bool) error
}

type SequenceRepository interface {
	// Next reserves and returns the next application code for the given
	// day key as a single atomic step.
	Next(ctx context.Context, dayKey int64) (int64, error)
}
