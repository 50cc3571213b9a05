package domain

import (
	"context"
	"time"

	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/pkg/db/pagination"
)

type Service interface {
	// Check replays fee resolution for a filtered sample of ledger records
	// and reports where the processor-withheld fee disagrees with what the
	// pricing engine would have charged. Purely diagnostic: no tier, goal,
	// or ledger state is written.
	Check(ctx context.Context, req CheckRequest) (*Report, error)
}

type CheckRequest struct {
	Statuses          []ledgerdomain.PaymentStatus
	From              *time.Time
	To                *time.Time
	Search            string
	PlanType          string
	TierSystemEnabled bool
	Pagination        pagination.Pagination
}
