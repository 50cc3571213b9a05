package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FeeRateMaster is one configured fee rate row. Tier is nil for the flat
// (tier-system-disabled) rate of a plan type.
type FeeRateMaster struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	PlanType      string       `json:"plan_type" gorm:"type:text;not null;index:idx_fee_rate_plan"`
	Tier          *int         `json:"tier" gorm:"index:idx_fee_rate_plan"`
	EffectiveFrom time.Time    `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time   `json:"effective_to"` // nil for open-ended
	FeeRate       float64      `json:"fee_rate" gorm:"not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (FeeRateMaster) TableName() string { return "fee_rate_masters" }

// Rate sources, in resolution order.
const (
	SourceCommunityBonus  = "community_bonus"
	SourceCommunityNormal = "community_normal"
	SourceMaster          = "master"
	SourceTierDefault     = "tier_default"
	SourceFlatMaster      = "flat_master"
	SourceFlatDefault     = "flat_default"
)

// Resolution is the effective fee rate for one seller at one instant.
type Resolution struct {
	SellerID              string  `json:"seller_id"`
	PlanType              string  `json:"plan_type"`
	Tier                  int     `json:"tier"`
	TierName              string  `json:"tier_name"`
	Rate                  float64 `json:"rate"`
	Source                string  `json:"source"`
	CommunityGoalAchieved bool    `json:"community_goal_achieved"`
}

// ValidRate reports whether a configured rate is usable: a fee rate must be a
// strict fraction of the transaction amount.
func ValidRate(rate float64) bool {
	return rate > 0 && rate < 1
}

const minFee = 1

// ComputeFee derives the integer fee for one transaction. Zero-amount orders
// carry no fee; nonzero amounts are floored with a one-unit minimum. A fee
// that meets or exceeds the amount signals broken rate configuration and is
// never silently capped.
func ComputeFee(amount int64, rate float64) (int64, error) {
	if amount < 0 || !ValidRate(rate) {
		return 0, ErrInvalidRate
	}
	if amount == 0 {
		return 0, nil
	}
	fee := int64(math.Floor(float64(amount) * rate))
	if fee < minFee {
		fee = minFee
	}
	if fee >= amount {
		return 0, ErrFeeExceedsAmount
	}
	return fee, nil
}
