package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// ResolveCurrentTier seeds or refreshes the seller's tier row for the
	// given month and returns the resolved state.
	ResolveCurrentTier(ctx context.Context, sellerID string, year int, month time.Month) (*Resolution, error)

	// EvaluateAt computes the same tuple for an arbitrary instant without
	// writing anything. Count overrides replace the ledger-derived counts
	// for the target and prior month.
	EvaluateAt(ctx context.Context, req EvaluateRequest) (*Resolution, error)
}

// Resolution is the resolved tier tuple for one seller month.
type Resolution struct {
	SellerID         string `json:"seller_id"`
	YearMonth        string `json:"year_month"`
	StartTier        int    `json:"start_tier"`
	BaseTier         int    `json:"base_tier"`
	CurrentTier      int    `json:"current_tier"`
	TierName         string `json:"tier_name"`
	TransactionCount int64  `json:"transaction_count"`
}

type EvaluateRequest struct {
	SellerID                 string
	AsOf                     time.Time
	TransactionCountOverride *int64
	PrevMonthCountOverride   *int64
}

var (
	ErrInvalidSeller = errors.New("invalid_seller")
	ErrInvalidMonth  = errors.New("invalid_month")
)
