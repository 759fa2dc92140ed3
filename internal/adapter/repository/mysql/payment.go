package mysql

import (
	"context"

	"lendcore-backend/internal/domain/payment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) CreateCheckout(ctx context.Context, c *payment.Checkout) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *PaymentRepository) SaveCheckout(ctx context.Context, c *payment.Checkout) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *PaymentRepository) GetCheckoutByRefForUpdate(ctx context.Context, refNo string) (*payment.Checkout, error) {
	var out payment.Checkout
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ref_no = ?", refNo).
		First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) CreatePayIn(ctx context.Context, p *payment.PayIn) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) CreatePayOut(ctx context.Context, p *payment.PayOut) error {
	return r.db.WithContext(ctx).Create(p).Error
}
