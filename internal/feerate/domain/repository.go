package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// FindEffectiveByTier returns the rate row for (planType, tier) effective
	// at the given instant, preferring the latest effective_from. Nil when no
	// row applies.
	FindEffectiveByTier(ctx context.Context, db *gorm.DB, planType string, tier int, at time.Time) (*FeeRateMaster, error)

	// FindEffectiveFlat returns the tierless rate row for planType.
	FindEffectiveFlat(ctx context.Context, db *gorm.DB, planType string, at time.Time) (*FeeRateMaster, error)
}
