package mysql

import (
	"context"
	"errors"

	"lendcore-backend/internal/domain/lending"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

// Ensure locks the (client, product) profile row for the remainder of
// the enclosing transaction. Besides creating the row on first contact,
// the lock serializes concurrent submits for the same pair, so checks
// made after Ensure cannot race a parallel insert.
func (r *ProfileRepository) Ensure(ctx context.Context, clientID, productID uint64) (*lending.LoanProfile, error) {
	var out lending.LoanProfile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND product_id = ?", clientID, productID).
		First(&out).Error
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	out = lending.LoanProfile{ClientID: clientID, ProductID: productID}
	if err := r.db.WithContext(ctx).Create(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// concurrent Ensure won; block on the winner's row
			res := r.db.WithContext(ctx).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("client_id = ? AND product_id = ?", clientID, productID).
				First(&out)
			return &out, res.Error
		}
		return nil, err
	}
	return &out, nil
}

func (r *ProfileRepository) SetActive(ctx context.Context, clientID, productID uint64, active bool) error {
	return r.db.WithContext(ctx).
		Model(&lending.LoanProfile{}).
		Where("client_id = ? AND product_id = ?", clientID, productID).
		Update("is_active", active).Error
}
