package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
)

const defaultPlanType = "standard"

// EnsureFeeRates seeds the fee rate master table on first boot: one open-ended
// row per tier matching the static defaults, plus the tierless flat row used
// when the tier system is disabled. A non-empty table is left alone so
// operator edits survive restarts.
func EnsureFeeRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&feeratedomain.FeeRateMaster{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		effectiveFrom := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

		rows := make([]feeratedomain.FeeRateMaster, 0, tierdomain.TopTier+1)
		rows = append(rows, feeratedomain.FeeRateMaster{
			ID:            node.Generate(),
			PlanType:      defaultPlanType,
			Tier:          nil,
			EffectiveFrom: effectiveFrom,
			FeeRate:       0.10,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		for _, def := range tierdomain.Definitions() {
			tier := def.Number
			rows = append(rows, feeratedomain.FeeRateMaster{
				ID:            node.Generate(),
				PlanType:      defaultPlanType,
				Tier:          &tier,
				EffectiveFrom: effectiveFrom,
				FeeRate:       def.DefaultFeeRate,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		return tx.Create(&rows).Error
	})
}
