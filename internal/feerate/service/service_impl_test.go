package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/clock"
	cgdomain "github.com/furima-share/fleapay/internal/communitygoal/domain"
	cgrepo "github.com/furima-share/fleapay/internal/communitygoal/repository"
	cgservice "github.com/furima-share/fleapay/internal/communitygoal/service"
	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/feerate/domain"
	feeraterepo "github.com/furima-share/fleapay/internal/feerate/repository"
	feerateservice "github.com/furima-share/fleapay/internal/feerate/service"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
	tierrepo "github.com/furima-share/fleapay/internal/tier/repository"
	tierservice "github.com/furima-share/fleapay/internal/tier/service"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db  *gorm.DB
	svc domain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&tierdomain.SellerMonthlyTierState{},
		&cgdomain.CommunityGoal{},
		&domain.FeeRateMaster{},
		&ledgerdomain.PaymentRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fake := clock.NewFakeClock(testNow)

	tierSvc := tierservice.NewService(tierservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  tierrepo.Provide(),
		Clock: fake,
	})
	goalSvc := cgservice.NewService(cgservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  cgrepo.Provide(),
		Clock: fake,
	})
	svc := feerateservice.NewService(feerateservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Repo:    feeraterepo.Provide(),
		TierSvc: tierSvc,
		GoalSvc: goalSvc,
		Pricing: config.NewStaticPricingConfigHolder(config.PricingConfig{
			CommunityGoalPhase: "phase1",
			DefaultFlatRate:    0.10,
		}),
		Clock: fake,
	})

	return &fixture{db: db, svc: svc}
}

func (f *fixture) seedPayments(t *testing.T, sellerID string, n int, amount int64) {
	t.Helper()

	node, err := snowflake.NewNode(20)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	for i := 0; i < n; i++ {
		record := ledgerdomain.PaymentRecord{
			ID:                  node.Generate(),
			TransactionIntentID: fmt.Sprintf("pi_%s_%d", sellerID, i),
			SellerID:            sellerID,
			Currency:            "JPY",
			AmountGross:         amount,
			AmountNet:           amount,
			Status:              ledgerdomain.StatusSucceeded,
			SucceededAt:         testNow,
			CreatedAt:           testNow,
			UpdatedAt:           testNow,
		}
		if err := f.db.Create(&record).Error; err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}
}

func (f *fixture) seedGoal(t *testing.T, target int64) {
	t.Helper()

	node, _ := snowflake.NewNode(21)
	goal := cgdomain.CommunityGoal{
		ID:            node.Generate(),
		Phase:         "phase1",
		EffectiveFrom: testNow.AddDate(0, -1, 0),
		TargetAmount:  target,
		BonusFeeRate:  0.05,
		NormalFeeRate: 0.08,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if err := f.db.Create(&goal).Error; err != nil {
		t.Fatalf("seed goal: %v", err)
	}
}

func (f *fixture) seedMaster(t *testing.T, planType string, tier *int, rate float64) {
	t.Helper()

	node, _ := snowflake.NewNode(22)
	row := domain.FeeRateMaster{
		ID:            node.Generate(),
		PlanType:      planType,
		Tier:          tier,
		EffectiveFrom: testNow.AddDate(-1, 0, 0),
		FeeRate:       rate,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("seed master: %v", err)
	}
}

func TestResolveFlatBypassNeverTouchesTierState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID: "seller-1",
		PlanType: "standard",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Rate != 0.10 || got.Source != domain.SourceFlatDefault {
		t.Fatalf("unexpected resolution: %+v", got)
	}

	var rows int64
	if err := f.db.Model(&tierdomain.SellerMonthlyTierState{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("flat bypass wrote %d tier rows", rows)
	}
}

func TestResolveFlatPrefersMasterRow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedMaster(t, "standard", nil, 0.07)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID: "seller-1",
		PlanType: "standard",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Rate != 0.07 || got.Source != domain.SourceFlatMaster {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestResolveLowerTierUsesMasterThenDefault(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Tier != 1 || got.Rate != 0.100 || got.Source != domain.SourceTierDefault {
		t.Fatalf("unexpected resolution: %+v", got)
	}

	tier1 := 1
	f.seedMaster(t, "standard", &tier1, 0.099)

	got, err = f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve with master: %v", err)
	}
	if got.Rate != 0.099 || got.Source != domain.SourceMaster {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestTopTierFollowsCommunityGoal(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPayments(t, "seller-1", 51, 1000) // tier 5 and 51,000 volume
	f.seedGoal(t, 50_000)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Tier != 5 {
		t.Fatalf("tier = %d, want 5", got.Tier)
	}
	if !got.CommunityGoalAchieved || got.Rate != 0.05 || got.Source != domain.SourceCommunityBonus {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestTopTierNormalRateWhenGoalNotMet(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPayments(t, "seller-1", 51, 1000)
	f.seedGoal(t, 10_000_000)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.CommunityGoalAchieved || got.Rate != 0.08 || got.Source != domain.SourceCommunityNormal {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestTopTierFallsBackWhenNoGoalConfigured(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPayments(t, "seller-1", 51, 1000)

	got, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Rate != 0.080 {
		t.Fatalf("rate = %f, want the top tier default", got.Rate)
	}
}

func TestQuoteDerivesFee(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	quote, err := f.svc.Quote(ctx, domain.QuoteRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
		Amount:            19_990,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fee != 1999 {
		t.Fatalf("fee = %d, want 1999", quote.Fee)
	}
	if quote.Amount != 19_990 {
		t.Fatalf("amount = %d", quote.Amount)
	}
}

func TestQuoteRejectsFeeMeetingAmount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Quote(ctx, domain.QuoteRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
		Amount:            1,
	})
	if err != domain.ErrFeeExceedsAmount {
		t.Fatalf("err = %v, want ErrFeeExceedsAmount", err)
	}
}

func TestResolveAtDoesNotWriteTierState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPayments(t, "seller-1", 11, 1000)

	got, err := f.svc.ResolveAt(ctx, domain.ResolveAtRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
		AsOf:              testNow,
	})
	if err != nil {
		t.Fatalf("resolve at: %v", err)
	}
	if got.Tier != 3 || got.Rate != 0.090 {
		t.Fatalf("unexpected resolution: %+v", got)
	}

	var rows int64
	if err := f.db.Model(&tierdomain.SellerMonthlyTierState{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("historical resolve wrote %d tier rows", rows)
	}
}

func TestResolveForTierSkipsTierResolution(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedPayments(t, "seller-1", 51, 1000)
	f.seedGoal(t, 50_000)

	full, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		SellerID:          "seller-1",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	direct, err := f.svc.ResolveForTier(ctx, domain.TierRateRequest{
		SellerID: "seller-1",
		PlanType: "standard",
		Tier:     full.Tier,
		AsOf:     testNow,
	})
	if err != nil {
		t.Fatalf("resolve for tier: %v", err)
	}
	if direct.Rate != full.Rate || direct.Source != full.Source ||
		direct.CommunityGoalAchieved != full.CommunityGoalAchieved {
		t.Fatalf("tier-rate lookup diverged: full %+v, direct %+v", full, direct)
	}

	if _, err := f.svc.ResolveForTier(ctx, domain.TierRateRequest{
		SellerID: "seller-1",
		PlanType: "  ",
		Tier:     1,
	}); err != domain.ErrInvalidPlanType {
		t.Fatalf("blank plan: err = %v", err)
	}
}
