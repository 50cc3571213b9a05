package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/internal/tier/domain"
	pkgdb "github.com/furima-share/fleapay/pkg/db"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, sellerID, yearMonth string) (*domain.SellerMonthlyTierState, error) {
	return find(pkgdb.WithRowLock(tx.WithContext(ctx)), sellerID, yearMonth)
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, sellerID, yearMonth string) (*domain.SellerMonthlyTierState, error) {
	return find(db.WithContext(ctx), sellerID, yearMonth)
}

func find(db *gorm.DB, sellerID, yearMonth string) (*domain.SellerMonthlyTierState, error) {
	var item domain.SellerMonthlyTierState
	err := db.
		Where("seller_id = ? AND year_month = ?", sellerID, yearMonth).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, state *domain.SellerMonthlyTierState) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}, {Name: "year_month"}},
			DoNothing: true,
		}).
		Create(state)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, state *domain.SellerMonthlyTierState) error {
	return tx.WithContext(ctx).
		Model(&domain.SellerMonthlyTierState{}).
		Where("id = ?", state.ID).
		Updates(map[string]any{
			"transaction_count": state.TransactionCount,
			"current_tier":      state.CurrentTier,
			"updated_at":        state.UpdatedAt,
		}).Error
}

func (r *repo) CountTransactions(ctx context.Context, db *gorm.DB, sellerID string, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&ledgerdomain.PaymentRecord{}).
		Where("seller_id = ? AND succeeded_at >= ? AND succeeded_at < ?", sellerID, from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
