package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/communitygoal/domain"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEffective(ctx context.Context, db *gorm.DB, phase string, at time.Time) (*domain.CommunityGoal, error) {
	var item domain.CommunityGoal
	err := db.WithContext(ctx).
		Where("phase = ? AND effective_from <= ?", phase, at).
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

func (r *repo) SumVolume(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error) {
	var total *int64
	err := db.WithContext(ctx).
		Model(&ledgerdomain.PaymentRecord{}).
		Select("SUM(amount_gross)").
		Where("succeeded_at >= ? AND succeeded_at < ?", from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
