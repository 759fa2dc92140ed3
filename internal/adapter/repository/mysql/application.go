package mysql

import (
	"context"

	"lendcore-backend/internal/domain/lending"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *lending.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *lending.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByCode(ctx context.Context, code int64) (*lending.Application, error) {
	var out lending.Application
	res := r.db.WithContext(ctx).Where("code = ?", code).First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetByCodeForUpdate(ctx context.Context, code int64) (*lending.Application, error) {
	var out lending.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetOpenByClientProduct(ctx context.Context, clientID, productID uint64) (*lending.Application, error) {
	var out lending.Application
	res := r.db.WithContext(ctx).
		Where("client_id = ? AND product_id = ? AND status IN ?",
			clientID, productID, []lending.ApplicationStatus{lending.StatusPending, lending.StatusApproved}).
		Order("created_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}
