package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Resolve returns the effective fee rate for a seller right now. This is
	// the checkout entry point and refreshes the seller's tier row.
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error)

	// ResolveAt computes the rate for an arbitrary instant without writing
	// tier state. Used by diagnostics that replay historical orders.
	ResolveAt(ctx context.Context, req ResolveAtRequest) (*Resolution, error)

	// ResolveForTier returns the rate for an already-resolved tier, so a
	// caller holding a fresh tier resolution does not resolve it twice.
	ResolveForTier(ctx context.Context, req TierRateRequest) (*Resolution, error)

	// Quote resolves the rate and applies it to an order amount.
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type ResolveRequest struct {
	SellerID          string
	PlanType          string
	TierSystemEnabled bool
}

type ResolveAtRequest struct {
	SellerID          string
	PlanType          string
	TierSystemEnabled bool
	AsOf              time.Time
}

type TierRateRequest struct {
	SellerID string
	PlanType string
	Tier     int
	AsOf     time.Time
}

type QuoteRequest struct {
	SellerID          string
	PlanType          string
	TierSystemEnabled bool
	Amount            int64
}

// Quote is the checkout-facing fee figure.
type Quote struct {
	Resolution
	Amount int64 `json:"amount"`
	Fee    int64 `json:"fee"`
}

var (
	ErrInvalidPlanType  = errors.New("invalid_plan_type")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrFeeExceedsAmount = errors.New("fee_exceeds_amount")
)
