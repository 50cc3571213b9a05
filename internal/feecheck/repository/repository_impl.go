package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/feecheck/domain"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListRecords(ctx context.Context, db *gorm.DB, filter domain.RecordFilter) ([]*ledgerdomain.PaymentRecord, error) {
	q := db.WithContext(ctx).Model(&ledgerdomain.PaymentRecord{})

	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		q = q.Where("succeeded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("succeeded_at < ?", *filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"transaction_intent_id LIKE ? OR seller_id LIKE ? OR order_id LIKE ?",
			like, like, like,
		)
	}
	if filter.AfterID != nil {
		q = q.Where("id > ?", *filter.AfterID)
	}

	var rows []*ledgerdomain.PaymentRecord
	err := q.Order("id ASC").Limit(filter.Limit + 1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
