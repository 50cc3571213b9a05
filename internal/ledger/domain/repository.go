package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent records the delivery if the (provider, event id) pair is
	// new. Returns false when the event was seen before.
	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentEventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*PaymentEventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error

	FindByIntentForUpdate(ctx context.Context, tx *gorm.DB, intentID string) (*PaymentRecord, error)
	FindByChargeForUpdate(ctx context.Context, tx *gorm.DB, chargeID string) (*PaymentRecord, error)
	FindByIntent(ctx context.Context, db *gorm.DB, intentID string) (*PaymentRecord, error)
	// InsertRecord creates the ledger row if no row exists for its intent.
	InsertRecord(ctx context.Context, tx *gorm.DB, record *PaymentRecord) (bool, error)
	UpdateRecord(ctx context.Context, tx *gorm.DB, record *PaymentRecord) error
}
