package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/feerate/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEffectiveByTier(ctx context.Context, db *gorm.DB, planType string, tier int, at time.Time) (*domain.FeeRateMaster, error) {
	return findEffective(db.WithContext(ctx).Where("tier = ?", tier), planType, at)
}

func (r *repo) FindEffectiveFlat(ctx context.Context, db *gorm.DB, planType string, at time.Time) (*domain.FeeRateMaster, error) {
	return findEffective(db.WithContext(ctx).Where("tier IS NULL"), planType, at)
}

func findEffective(db *gorm.DB, planType string, at time.Time) (*domain.FeeRateMaster, error) {
	var item domain.FeeRateMaster
	err := db.
		Where("plan_type = ? AND effective_from <= ?", planType, at).
		Where("effective_to IS NULL OR effective_to > ?", at).
		Order("effective_from DESC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
