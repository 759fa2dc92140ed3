package ledger

import "context"

type Repository interface {
	Append(ctx context.Context, t *Transaction) error
	ListBySubject(ctx context.Context, subject string) ([]Transaction, error)
	ListByRef(ctx context.Context, ref string) ([]Transaction, error)
}
