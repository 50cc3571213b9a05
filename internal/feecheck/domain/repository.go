package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
)

type RecordFilter struct {
	Statuses []ledgerdomain.PaymentStatus
	From     *time.Time
	To       *time.Time
	Search   string
	AfterID  *int64 // keyset cursor, exclusive
	Limit    int
}

type Repository interface {
	// ListRecords pages through ledger records matching the filter in id
	// order. Returns up to Limit+1 rows so the caller can detect more pages.
	ListRecords(ctx context.Context, db *gorm.DB, filter RecordFilter) ([]*ledgerdomain.PaymentRecord, error)
}
