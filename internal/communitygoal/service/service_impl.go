package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/clock"
	"github.com/furima-share/fleapay/internal/communitygoal/domain"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("communitygoal.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Status(ctx context.Context, phase string) (*domain.Status, error) {
	return s.StatusAt(ctx, phase, s.clock.Now())
}

func (s *Service) StatusAt(ctx context.Context, phase string, at time.Time) (*domain.Status, error) {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return nil, domain.ErrInvalidPhase
	}

	at = at.UTC()
	ym := tierdomain.MonthKey(at.Year(), at.Month())
	from, to := tierdomain.MonthWindow(at.Year(), at.Month())

	goal, err := s.repo.FindEffective(ctx, s.db, phase, at)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		// Goal configuration is operational; an unconfigured phase resolves
		// to a not-achieved snapshot at the top-tier default rate.
		def, _ := tierdomain.Definition(tierdomain.TopTier)
		s.log.Debug("no effective community goal", zap.String("phase", phase), zap.String("year_month", ym))
		return &domain.Status{
			Phase:         phase,
			YearMonth:     ym,
			BonusFeeRate:  def.DefaultFeeRate,
			NormalFeeRate: def.DefaultFeeRate,
		}, nil
	}

	current, err := s.repo.SumVolume(ctx, s.db, from, to)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if goal.TargetAmount > 0 {
		rate = float64(current) / float64(goal.TargetAmount)
	}
	return &domain.Status{
		Phase:           phase,
		YearMonth:       ym,
		TargetAmount:    goal.TargetAmount,
		CurrentAmount:   current,
		AchievementRate: rate,
		IsAchieved:      goal.TargetAmount > 0 && current >= goal.TargetAmount,
		BonusFeeRate:    goal.BonusFeeRate,
		NormalFeeRate:   goal.NormalFeeRate,
		Configured:      true,
	}, nil
}
