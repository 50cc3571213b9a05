package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/feecheck/domain"
	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/pkg/db/pagination"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	FeeRateSvc feeratedomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	feeRateSvc feeratedomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("feecheck.service"),
		repo:       p.Repo,
		feeRateSvc: p.FeeRateSvc,
	}
}

func (s *Service) Check(ctx context.Context, req domain.CheckRequest) (*domain.Report, error) {
	limit := req.Pagination.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := domain.RecordFilter{
		Statuses: req.Statuses,
		From:     req.From,
		To:       req.To,
		Search:   req.Search,
		Limit:    limit,
	}
	if token := strings.TrimSpace(req.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		afterID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		filter.AfterID = &afterID
	}

	records, err := s.repo.ListRecords(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	report := &domain.Report{
		Rows:     make([]*domain.Row, 0, len(records)),
		PageInfo: &pagination.PageInfo{HasMore: hasMore},
	}
	for _, record := range records {
		row := s.classify(ctx, record, req.PlanType, req.TierSystemEnabled)
		report.Rows = append(report.Rows, row)
		report.Summary.Total++
		switch row.Result {
		case domain.ResultOK:
			report.Summary.OK++
		case domain.ResultMismatch:
			report.Summary.Mismatch++
		case domain.ResultMissingFeeRate:
			report.Summary.MissingFeeRate++
		case domain.ResultMissingApplicationFee:
			report.Summary.MissingApplicationFee++
		}
	}
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: strconv.FormatInt(int64(last.ID), 10)})
		if err != nil {
			return nil, err
		}
		report.PageInfo.NextPageToken = token
	}
	return report, nil
}

// classify buckets one record. Resolution failures are diagnostics here, not
// errors: an order we cannot price is itself a finding.
func (s *Service) classify(ctx context.Context, record *ledgerdomain.PaymentRecord, planType string, tierEnabled bool) *domain.Row {
	row := &domain.Row{
		RecordID:    record.ID,
		IntentID:    record.TransactionIntentID,
		SellerID:    record.SellerID,
		OrderID:     record.OrderID,
		Status:      record.Status,
		SucceededAt: record.SucceededAt,
		AmountGross: record.AmountGross,
		ActualFee:   record.AmountFee,
	}

	resolution, err := s.feeRateSvc.ResolveAt(ctx, feeratedomain.ResolveAtRequest{
		SellerID:          record.SellerID,
		PlanType:          planType,
		TierSystemEnabled: tierEnabled,
		AsOf:              record.SucceededAt,
	})
	if err != nil {
		s.log.Debug("fee rate unresolvable for record",
			zap.String("transaction_intent_id", record.TransactionIntentID),
			zap.Error(err),
		)
		row.Result = domain.ResultMissingFeeRate
		return row
	}
	row.ExpectedRate = &resolution.Rate

	expected, err := feeratedomain.ComputeFee(record.AmountGross, resolution.Rate)
	if err != nil {
		row.Result = domain.ResultMissingFeeRate
		return row
	}
	row.ExpectedFee = &expected

	if record.AmountFee == nil {
		row.Result = domain.ResultMissingApplicationFee
		return row
	}
	if *record.AmountFee == expected {
		row.Result = domain.ResultOK
	} else {
		row.Result = domain.ResultMismatch
	}
	return row
}
