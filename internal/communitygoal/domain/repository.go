package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// FindEffective returns the goal row effective for phase at the given
	// instant, preferring the latest effective_from on overlap. Nil when no
	// row applies.
	FindEffective(ctx context.Context, db *gorm.DB, phase string, at time.Time) (*CommunityGoal, error)

	// SumVolume totals successful-payment gross volume across all sellers
	// in [from, to), read from the payment ledger.
	SumVolume(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error)
}
