package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TierDefinition is one row of the static five-tier table. Ranges are
// contiguous and non-overlapping; the top tier is open-ended.
type TierDefinition struct {
	Number         int
	Name           string
	MinCount       int64
	MaxCount       *int64 // nil for the open-ended top tier
	DefaultFeeRate float64
}

const TopTier = 5

func int64Ptr(v int64) *int64 { return &v }

var definitions = []TierDefinition{
	{Number: 1, Name: "Regular", MinCount: 0, MaxCount: int64Ptr(3), DefaultFeeRate: 0.100},
	{Number: 2, Name: "Bronze", MinCount: 4, MaxCount: int64Ptr(10), DefaultFeeRate: 0.095},
	{Number: 3, Name: "Silver", MinCount: 11, MaxCount: int64Ptr(24), DefaultFeeRate: 0.090},
	{Number: 4, Name: "Gold", MinCount: 25, MaxCount: int64Ptr(50), DefaultFeeRate: 0.085},
	{Number: 5, Name: "Platinum", MinCount: 51, MaxCount: nil, DefaultFeeRate: 0.080},
}

// Definitions returns the static tier table in ascending tier order.
func Definitions() []TierDefinition {
	out := make([]TierDefinition, len(definitions))
	copy(out, definitions)
	return out
}

// Definition returns the tier row for the given tier number.
func Definition(tier int) (TierDefinition, bool) {
	for _, def := range definitions {
		if def.Number == tier {
			return def, true
		}
	}
	return TierDefinition{}, false
}

// BaseTier maps a monthly transaction count onto a tier. Negative counts
// clamp to tier 1.
func BaseTier(count int64) int {
	if count < 0 {
		return 1
	}
	for _, def := range definitions {
		if def.MaxCount == nil {
			return def.Number
		}
		if count <= *def.MaxCount {
			return def.Number
		}
	}
	return TopTier
}

// ResolveStartTier applies the month carry-over rule: a tier 5 finish floors
// the next month at tier 4, a tier 4 finish at tier 3, everything else
// (including no history) starts at tier 1.
func ResolveStartTier(previousCurrentTier *int) int {
	if previousCurrentTier == nil {
		return 1
	}
	switch *previousCurrentTier {
	case 5:
		return 4
	case 4:
		return 3
	default:
		return 1
	}
}

// SellerMonthlyTierState is the durable per-seller, per-month tier record.
// start_tier is fixed when the row is created; current_tier only moves up
// within the month.
type SellerMonthlyTierState struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	SellerID         string       `json:"seller_id" gorm:"type:text;not null;uniqueIndex:ux_seller_month,priority:1"`
	YearMonth        string       `json:"year_month" gorm:"type:text;not null;uniqueIndex:ux_seller_month,priority:2"`
	StartTier        int          `json:"start_tier" gorm:"not null"`
	TransactionCount int64        `json:"transaction_count" gorm:"not null"`
	CurrentTier      int          `json:"current_tier" gorm:"not null"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (SellerMonthlyTierState) TableName() string { return "seller_monthly_tier_states" }

// MonthKey renders the canonical year_month column value.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// MonthWindow returns the UTC [start, end) window of a calendar month.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
