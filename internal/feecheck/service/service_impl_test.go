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
	"github.com/furima-share/fleapay/internal/feecheck/domain"
	feecheckrepo "github.com/furima-share/fleapay/internal/feecheck/repository"
	feecheckservice "github.com/furima-share/fleapay/internal/feecheck/service"
	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
	feeraterepo "github.com/furima-share/fleapay/internal/feerate/repository"
	feerateservice "github.com/furima-share/fleapay/internal/feerate/service"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
	tierrepo "github.com/furima-share/fleapay/internal/tier/repository"
	tierservice "github.com/furima-share/fleapay/internal/tier/service"
	"github.com/furima-share/fleapay/pkg/db/pagination"
)

var testNow = time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db   *gorm.DB
	svc  domain.Service
	node *snowflake.Node
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
		&feeratedomain.FeeRateMaster{},
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
		DB: db, Log: zap.NewNop(), GenID: node, Repo: tierrepo.Provide(), Clock: fake,
	})
	goalSvc := cgservice.NewService(cgservice.Params{
		DB: db, Log: zap.NewNop(), Repo: cgrepo.Provide(), Clock: fake,
	})
	feeRateSvc := feerateservice.NewService(feerateservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Repo:    feeraterepo.Provide(),
		TierSvc: tierSvc,
		GoalSvc: goalSvc,
		Pricing: config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		Clock:   fake,
	})
	svc := feecheckservice.NewService(feecheckservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       feecheckrepo.Provide(),
		FeeRateSvc: feeRateSvc,
	})
	return &fixture{db: db, svc: svc, node: node}
}

func (f *fixture) seedRecord(t *testing.T, seller string, gross int64, fee *int64) {
	t.Helper()

	record := ledgerdomain.PaymentRecord{
		ID:                  f.node.Generate(),
		TransactionIntentID: fmt.Sprintf("pi_%s", seller),
		ChargeID:            fmt.Sprintf("ch_%s", seller),
		SellerID:            seller,
		OrderID:             fmt.Sprintf("order_%s", seller),
		Currency:            "JPY",
		AmountGross:         gross,
		AmountFee:           fee,
		AmountNet:           ledgerdomain.Net(gross, fee, 0),
		Status:              ledgerdomain.StatusSucceeded,
		SucceededAt:         testNow,
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}
	if err := f.db.Create(&record).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCheckClassifiesEveryRecordOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// One record per seller keeps everyone at tier 1 (rate 0.10).
	f.seedRecord(t, "ok", 10_000, int64Ptr(1_000))
	f.seedRecord(t, "mismatch", 10_000, int64Ptr(900))
	f.seedRecord(t, "pending", 10_000, nil)
	f.seedRecord(t, "tiny", 1, int64Ptr(1)) // expected fee >= amount: config gap

	report, err := f.svc.Check(ctx, domain.CheckRequest{
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if report.Summary.Total != 4 {
		t.Fatalf("total = %d", report.Summary.Total)
	}
	if report.Summary.OK != 1 || report.Summary.Mismatch != 1 ||
		report.Summary.MissingApplicationFee != 1 || report.Summary.MissingFeeRate != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	byResult := map[string]string{}
	for _, row := range report.Rows {
		byResult[row.Result] = row.SellerID
	}
	if byResult[domain.ResultOK] != "ok" ||
		byResult[domain.ResultMismatch] != "mismatch" ||
		byResult[domain.ResultMissingApplicationFee] != "pending" ||
		byResult[domain.ResultMissingFeeRate] != "tiny" {
		t.Fatalf("unexpected classification: %v", byResult)
	}
}

func TestCheckIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedRecord(t, "ok", 10_000, int64Ptr(1_000))

	if _, err := f.svc.Check(ctx, domain.CheckRequest{PlanType: "standard", TierSystemEnabled: true}); err != nil {
		t.Fatalf("check: %v", err)
	}

	var tierRows int64
	if err := f.db.Model(&tierdomain.SellerMonthlyTierState{}).Count(&tierRows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if tierRows != 0 {
		t.Fatalf("check wrote %d tier rows", tierRows)
	}
}

func TestCheckFilters(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedRecord(t, "alpha", 10_000, int64Ptr(1_000))
	f.seedRecord(t, "beta", 10_000, int64Ptr(1_000))

	report, err := f.svc.Check(ctx, domain.CheckRequest{
		Search:            "alpha",
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Summary.Total != 1 || report.Rows[0].SellerID != "alpha" {
		t.Fatalf("unexpected report: %+v", report.Summary)
	}

	from := testNow.AddDate(0, 1, 0)
	report, err = f.svc.Check(ctx, domain.CheckRequest{
		From:              &from,
		PlanType:          "standard",
		TierSystemEnabled: true,
	})
	if err != nil {
		t.Fatalf("check with window: %v", err)
	}
	if report.Summary.Total != 0 {
		t.Fatalf("future window matched %d rows", report.Summary.Total)
	}
}

func TestCheckPaginates(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 5; i++ {
		f.seedRecord(t, fmt.Sprintf("seller-%d", i), 10_000, int64Ptr(1_000))
	}

	first, err := f.svc.Check(ctx, domain.CheckRequest{
		PlanType:          "standard",
		TierSystemEnabled: true,
		Pagination:        pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Rows) != 2 || !first.PageInfo.HasMore || first.PageInfo.NextPageToken == "" {
		t.Fatalf("unexpected first page: rows=%d info=%+v", len(first.Rows), first.PageInfo)
	}

	second, err := f.svc.Check(ctx, domain.CheckRequest{
		PlanType:          "standard",
		TierSystemEnabled: true,
		Pagination: pagination.Pagination{
			PageSize:  10,
			PageToken: first.PageInfo.NextPageToken,
		},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Rows) != 3 || second.PageInfo.HasMore {
		t.Fatalf("unexpected second page: rows=%d info=%+v", len(second.Rows), second.PageInfo)
	}

	seen := map[string]bool{}
	for _, row := range append(first.Rows, second.Rows...) {
		if seen[row.IntentID] {
			t.Fatalf("row %s appeared twice", row.IntentID)
		}
		seen[row.IntentID] = true
	}
}
