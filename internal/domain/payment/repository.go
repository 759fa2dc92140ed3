package payment

import "context"

type Repository interface {
	CreateCheckout(ctx context.Context, c *Checkout) error
	SaveCheckout(ctx context.Context, c *Checkout) error
	// GetCheckoutByRefForUpdate locks the checkout row so a callback is
	// applied at most once.
	GetCheckoutByRefForUpdate(ctx context.Context, refNo string) (*Checkout, error)
	CreatePayIn(ctx context.Context, p *PayIn) error
	CreatePayOut(ctx context.Context, p *PayOut) error
}
