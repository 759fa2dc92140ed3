package mysql

import (
	"context"
	"errors"

	"lendcore-backend/internal/domain/lending"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SequenceRepository struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next reads the day's sequence row under a row lock and advances it.
// Two transactions on the same day key serialize on the lock, so no two
// callers can ever observe the same last_code. A brand-new day key
// starts at dayKey*10 + 1.
func (r *SequenceRepository) Next(ctx context.Context, dayKey int64) (int64, error) {
	tx := r.db.WithContext(ctx)

	var seq lending.CodeSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("day_key = ?", dayKey).
		First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = lending.CodeSequence{DayKey: dayKey, LastCode: dayKey*10 + 1}
		if err := tx.Create(&seq).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the race to create the day's row; caller retries.
				return 0, lending.ErrConcurrencyConflict
			}
			return 0, err
		}
		return seq.LastCode, nil
	case err != nil:
		return 0, err
	}

	seq.LastCode++
	if err := tx.Save(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastCode, nil
}
