package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/clock"
	cgdomain "github.com/furima-share/fleapay/internal/communitygoal/domain"
	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/feerate/domain"
	obsmetrics "github.com/furima-share/fleapay/internal/observability/metrics"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	TierSvc    tierdomain.Service
	GoalSvc    cgdomain.Service
	Pricing    *config.PricingConfigHolder
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	tierSvc    tierdomain.Service
	goalSvc    cgdomain.Service
	pricing    *config.PricingConfigHolder
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("feerate.service"),
		repo:       p.Repo,
		tierSvc:    p.TierSvc,
		goalSvc:    p.GoalSvc,
		pricing:    p.Pricing,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.Resolution, error) {
	req.SellerID = strings.TrimSpace(req.SellerID)
	req.PlanType = strings.TrimSpace(req.PlanType)
	if req.SellerID == "" {
		return nil, tierdomain.ErrInvalidSeller
	}
	if req.PlanType == "" {
		return nil, domain.ErrInvalidPlanType
	}

	now := s.clock.Now().UTC()

	if !req.TierSystemEnabled {
		return s.resolveFlat(ctx, req.SellerID, req.PlanType, now)
	}

	tier, err := s.tierSvc.ResolveCurrentTier(ctx, req.SellerID, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}
	return s.resolveForTier(ctx, req.SellerID, req.PlanType, tier.CurrentTier, now)
}

func (s *Service) ResolveAt(ctx context.Context, req domain.ResolveAtRequest) (*domain.Resolution, error) {
	req.SellerID = strings.TrimSpace(req.SellerID)
	req.PlanType = strings.TrimSpace(req.PlanType)
	if req.SellerID == "" {
		return nil, tierdomain.ErrInvalidSeller
	}
	if req.PlanType == "" {
		return nil, domain.ErrInvalidPlanType
	}
	asOf := req.AsOf.UTC()
	if asOf.IsZero() {
		asOf = s.clock.Now().UTC()
	}

	if !req.TierSystemEnabled {
		return s.resolveFlat(ctx, req.SellerID, req.PlanType, asOf)
	}

	tier, err := s.tierSvc.EvaluateAt(ctx, tierdomain.EvaluateRequest{
		SellerID: req.SellerID,
		AsOf:     asOf,
	})
	if err != nil {
		return nil, err
	}
	return s.resolveForTier(ctx, req.SellerID, req.PlanType, tier.CurrentTier, asOf)
}

func (s *Service) ResolveForTier(ctx context.Context, req domain.TierRateRequest) (*domain.Resolution, error) {
	req.SellerID = strings.TrimSpace(req.SellerID)
	req.PlanType = strings.TrimSpace(req.PlanType)
	if req.SellerID == "" {
		return nil, tierdomain.ErrInvalidSeller
	}
	if req.PlanType == "" {
		return nil, domain.ErrInvalidPlanType
	}
	at := req.AsOf.UTC()
	if at.IsZero() {
		at = s.clock.Now().UTC()
	}
	return s.resolveForTier(ctx, req.SellerID, req.PlanType, req.Tier, at)
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	resolution, err := s.Resolve(ctx, domain.ResolveRequest{
		SellerID:          req.SellerID,
		PlanType:          req.PlanType,
		TierSystemEnabled: req.TierSystemEnabled,
	})
	if err != nil {
		return nil, err
	}

	fee, err := domain.ComputeFee(req.Amount, resolution.Rate)
	if err != nil {
		s.log.Error("fee computation rejected",
			zap.String("seller_id", req.SellerID),
			zap.Int64("amount", req.Amount),
			zap.Float64("rate", resolution.Rate),
			zap.String("source", resolution.Source),
			zap.Error(err),
		)
		return nil, err
	}
	return &domain.Quote{Resolution: *resolution, Amount: req.Amount, Fee: fee}, nil
}

// resolveFlat is the tier-disabled path. Tier state is never consulted here
// so legacy pricing stays reproducible.
func (s *Service) resolveFlat(ctx context.Context, sellerID, planType string, at time.Time) (*domain.Resolution, error) {
	row, err := s.repo.FindEffectiveFlat(ctx, s.db, planType, at)
	if err != nil {
		return nil, err
	}
	if row != nil && domain.ValidRate(row.FeeRate) {
		return s.finish(&domain.Resolution{
			SellerID: sellerID,
			PlanType: planType,
			Rate:     row.FeeRate,
			Source:   domain.SourceFlatMaster,
		}), nil
	}

	return s.finish(&domain.Resolution{
		SellerID: sellerID,
		PlanType: planType,
		Rate:     s.pricing.Get().DefaultFlatRate,
		Source:   domain.SourceFlatDefault,
	}), nil
}

func (s *Service) resolveForTier(ctx context.Context, sellerID, planType string, tier int, at time.Time) (*domain.Resolution, error) {
	def, ok := tierdomain.Definition(tier)
	if !ok {
		return nil, domain.ErrInvalidRate
	}

	base := domain.Resolution{
		SellerID: sellerID,
		PlanType: planType,
		Tier:     tier,
		TierName: def.Name,
	}

	if tier == tierdomain.TopTier {
		phase := strings.TrimSpace(s.pricing.Get().CommunityGoalPhase)
		if phase == "" {
			base.Rate = def.DefaultFeeRate
			base.Source = domain.SourceTierDefault
			return s.finish(&base), nil
		}
		status, err := s.goalSvc.StatusAt(ctx, phase, at)
		if err != nil {
			return nil, err
		}
		base.CommunityGoalAchieved = status.IsAchieved
		if status.IsAchieved && domain.ValidRate(status.BonusFeeRate) {
			base.Rate = status.BonusFeeRate
			base.Source = domain.SourceCommunityBonus
		} else if domain.ValidRate(status.NormalFeeRate) {
			base.Rate = status.NormalFeeRate
			base.Source = domain.SourceCommunityNormal
		} else {
			base.Rate = def.DefaultFeeRate
			base.Source = domain.SourceTierDefault
		}
		return s.finish(&base), nil
	}

	row, err := s.repo.FindEffectiveByTier(ctx, s.db, planType, tier, at)
	if err != nil {
		return nil, err
	}
	if row != nil && domain.ValidRate(row.FeeRate) {
		base.Rate = row.FeeRate
		base.Source = domain.SourceMaster
		return s.finish(&base), nil
	}

	base.Rate = def.DefaultFeeRate
	base.Source = domain.SourceTierDefault
	return s.finish(&base), nil
}

func (s *Service) finish(resolution *domain.Resolution) *domain.Resolution {
	s.obsMetrics.RecordFeeResolution(resolution.Tier, resolution.Source)
	return resolution
}
