package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CommunityGoal is one configured campaign window. At most one row is
// effective for a given phase at a given instant; overlapping windows for the
// same phase are a configuration error resolved by latest effective_from.
type CommunityGoal struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	Phase         string       `json:"phase" gorm:"type:text;not null;index"`
	EffectiveFrom time.Time    `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time   `json:"effective_to"` // nil for open-ended
	TargetAmount  int64        `json:"target_amount" gorm:"not null"`
	BonusFeeRate  float64      `json:"bonus_fee_rate" gorm:"not null"`
	NormalFeeRate float64      `json:"normal_fee_rate" gorm:"not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (CommunityGoal) TableName() string { return "community_goals" }

// Status is a goal snapshot for one calendar month. The current amount is
// aggregated from the payment ledger at read time, never maintained as a
// counter.
type Status struct {
	Phase           string  `json:"phase"`
	YearMonth       string  `json:"year_month"`
	TargetAmount    int64   `json:"target_amount"`
	CurrentAmount   int64   `json:"current_amount"`
	AchievementRate float64 `json:"achievement_rate"`
	IsAchieved      bool    `json:"is_achieved"`
	BonusFeeRate    float64 `json:"bonus_fee_rate"`
	NormalFeeRate   float64 `json:"normal_fee_rate"`
	Configured      bool    `json:"configured"`
}
