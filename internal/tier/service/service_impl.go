package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/clock"
	"github.com/furima-share/fleapay/internal/tier/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) ResolveCurrentTier(ctx context.Context, sellerID string, year int, month time.Month) (*domain.Resolution, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return nil, domain.ErrInvalidSeller
	}
	if year < 1 || month < time.January || month > time.December {
		return nil, domain.ErrInvalidMonth
	}

	var resolution *domain.Resolution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		resolution, err = s.resolveInTx(ctx, tx, sellerID, year, month)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

func (s *Service) resolveInTx(ctx context.Context, tx *gorm.DB, sellerID string, year int, month time.Month) (*domain.Resolution, error) {
	ym := domain.MonthKey(year, month)
	from, to := domain.MonthWindow(year, month)

	state, err := s.repo.FindForUpdate(ctx, tx, sellerID, ym)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountTransactions(ctx, tx, sellerID, from, to)
	if err != nil {
		return nil, err
	}
	base := domain.BaseTier(count)

	if state == nil {
		startTier, err := s.resolveStartTier(ctx, tx, sellerID, year, month)
		if err != nil {
			return nil, err
		}
		now := s.clock.Now().UTC()
		state = &domain.SellerMonthlyTierState{
			ID:               s.genID.Generate(),
			SellerID:         sellerID,
			YearMonth:        ym,
			StartTier:        startTier,
			TransactionCount: count,
			CurrentTier:      maxTier(startTier, base),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		inserted, err := s.repo.Insert(ctx, tx, state)
		if err != nil {
			return nil, err
		}
		if inserted {
			return toResolution(state), nil
		}
		// Lost the seeding race; reload the winner's row and fall through
		// to the refresh path.
		state, err = s.repo.FindForUpdate(ctx, tx, sellerID, ym)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, gorm.ErrRecordNotFound
		}
	}

	current := maxTier(state.CurrentTier, maxTier(state.StartTier, base))
	if current != state.CurrentTier || count != state.TransactionCount {
		state.TransactionCount = count
		state.CurrentTier = current
		state.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, state); err != nil {
			return nil, err
		}
	}
	return toResolution(state), nil
}

// resolveStartTier derives this month's floor from the previous month. A
// missing previous row is reconstructed from the ledger one level deep: its
// own start tier comes from the stored month-before row or defaults to 1.
func (s *Service) resolveStartTier(ctx context.Context, tx *gorm.DB, sellerID string, year int, month time.Month) (int, error) {
	prevStart, _ := domain.MonthWindow(year, month)
	prevStart = prevStart.AddDate(0, -1, 0)
	prevYM := domain.MonthKey(prevStart.Year(), prevStart.Month())

	prev, err := s.repo.Find(ctx, tx, sellerID, prevYM)
	if err != nil {
		return 0, err
	}
	if prev != nil {
		return domain.ResolveStartTier(&prev.CurrentTier), nil
	}

	prevCount, err := s.repo.CountTransactions(ctx, tx, sellerID, prevStart, prevStart.AddDate(0, 1, 0))
	if err != nil {
		return 0, err
	}
	prevCurrent, err := s.reconstructPrevCurrent(ctx, tx, sellerID, prevStart, prevCount)
	if err != nil {
		return 0, err
	}
	return domain.ResolveStartTier(&prevCurrent), nil
}

// reconstructPrevCurrent rebuilds the previous month's current tier from its
// ledger count floored by the stored month-before row. A quiet month that was
// never queried must yield the same tier it would have been persisted with.
func (s *Service) reconstructPrevCurrent(ctx context.Context, db *gorm.DB, sellerID string, prevStart time.Time, prevCount int64) (int, error) {
	beforeStart := prevStart.AddDate(0, -1, 0)
	beforeYM := domain.MonthKey(beforeStart.Year(), beforeStart.Month())
	before, err := s.repo.Find(ctx, db, sellerID, beforeYM)
	if err != nil {
		return 0, err
	}
	prevStartTier := 1
	if before != nil {
		prevStartTier = domain.ResolveStartTier(&before.CurrentTier)
	}
	return maxTier(prevStartTier, domain.BaseTier(prevCount)), nil
}

func (s *Service) EvaluateAt(ctx context.Context, req domain.EvaluateRequest) (*domain.Resolution, error) {
	req.SellerID = strings.TrimSpace(req.SellerID)
	if req.SellerID == "" {
		return nil, domain.ErrInvalidSeller
	}
	if req.AsOf.IsZero() {
		req.AsOf = s.clock.Now()
	}
	asOf := req.AsOf.UTC()
	year, month := asOf.Year(), asOf.Month()
	ym := domain.MonthKey(year, month)
	from, to := domain.MonthWindow(year, month)

	db := s.db.WithContext(ctx)

	count := int64(0)
	if req.TransactionCountOverride != nil {
		count = *req.TransactionCountOverride
	} else {
		var err error
		count, err = s.repo.CountTransactions(ctx, db, req.SellerID, from, to)
		if err != nil {
			return nil, err
		}
	}
	base := domain.BaseTier(count)

	startTier := 0
	state, err := s.repo.Find(ctx, db, req.SellerID, ym)
	if err != nil {
		return nil, err
	}
	if state != nil && req.PrevMonthCountOverride == nil {
		startTier = state.StartTier
	} else {
		startTier, err = s.evaluateStartTier(ctx, db, req, from)
		if err != nil {
			return nil, err
		}
	}

	current := maxTier(startTier, base)
	if state != nil && req.TransactionCountOverride == nil && req.PrevMonthCountOverride == nil {
		current = maxTier(state.CurrentTier, current)
	}

	def, _ := domain.Definition(current)
	return &domain.Resolution{
		SellerID:         req.SellerID,
		YearMonth:        ym,
		StartTier:        startTier,
		BaseTier:         base,
		CurrentTier:      current,
		TierName:         def.Name,
		TransactionCount: count,
	}, nil
}

func (s *Service) evaluateStartTier(ctx context.Context, db *gorm.DB, req domain.EvaluateRequest, monthStart time.Time) (int, error) {
	prevStart := monthStart.AddDate(0, -1, 0)
	prevYM := domain.MonthKey(prevStart.Year(), prevStart.Month())

	prevCount := int64(0)
	if req.PrevMonthCountOverride != nil {
		prevCount = *req.PrevMonthCountOverride
	} else {
		prev, err := s.repo.Find(ctx, db, req.SellerID, prevYM)
		if err != nil {
			return 0, err
		}
		if prev != nil {
			return domain.ResolveStartTier(&prev.CurrentTier), nil
		}
		prevCount, err = s.repo.CountTransactions(ctx, db, req.SellerID, prevStart, monthStart)
		if err != nil {
			return 0, err
		}
	}

	prevCurrent, err := s.reconstructPrevCurrent(ctx, db, req.SellerID, prevStart, prevCount)
	if err != nil {
		return 0, err
	}
	return domain.ResolveStartTier(&prevCurrent), nil
}

func toResolution(state *domain.SellerMonthlyTierState) *domain.Resolution {
	def, _ := domain.Definition(state.CurrentTier)
	return &domain.Resolution{
		SellerID:         state.SellerID,
		YearMonth:        state.YearMonth,
		StartTier:        state.StartTier,
		BaseTier:         domain.BaseTier(state.TransactionCount),
		CurrentTier:      state.CurrentTier,
		TierName:         def.Name,
		TransactionCount: state.TransactionCount,
	}
}

func maxTier(a, b int) int {
	if a > b {
		return a
	}
	return b
}
