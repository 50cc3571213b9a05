package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/furima-share/fleapay/internal/ledger/domain"
	pkgdb "github.com/furima-share/fleapay/pkg/db"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.PaymentEventRecord) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.PaymentEventRecord, error) {
	var item domain.PaymentEventRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.PaymentEventRecord{}).
		Where("id = ?", id).
		Update("processed_at", processedAt).Error
}

func (r *repo) FindByIntentForUpdate(ctx context.Context, tx *gorm.DB, intentID string) (*domain.PaymentRecord, error) {
	return findRecord(pkgdb.WithRowLock(tx.WithContext(ctx)), "transaction_intent_id = ?", intentID)
}

func (r *repo) FindByChargeForUpdate(ctx context.Context, tx *gorm.DB, chargeID string) (*domain.PaymentRecord, error) {
	return findRecord(pkgdb.WithRowLock(tx.WithContext(ctx)), "charge_id = ?", chargeID)
}

func (r *repo) FindByIntent(ctx context.Context, db *gorm.DB, intentID string) (*domain.PaymentRecord, error) {
	return findRecord(db.WithContext(ctx), "transaction_intent_id = ?", intentID)
}

func findRecord(db *gorm.DB, query string, arg any) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.Where(query, arg).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) InsertRecord(ctx context.Context, tx *gorm.DB, record *domain.PaymentRecord) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_intent_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateRecord(ctx context.Context, tx *gorm.DB, record *domain.PaymentRecord) error {
	record.UpdatedAt = time.Now().UTC()
	return tx.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"charge_id":      record.ChargeID,
			"currency":       record.Currency,
			"amount_gross":   record.AmountGross,
			"amount_fee":     record.AmountFee,
			"refunded_total": record.RefundedTotal,
			"amount_net":     record.AmountNet,
			"status":         record.Status,
			"dispute_status": record.DisputeStatus,
			"succeeded_at":   record.SucceededAt,
			"updated_at":     record.UpdatedAt,
		}).Error
}
