package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/ledger/domain"
	obsmetrics "github.com/furima-share/fleapay/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	now := time.Now().UTC()
	received := domain.PaymentEventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return domain.ErrEventAlreadyProcessed
		}
	}

	if err := s.applyEvent(ctx, event); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	s.obsMetrics.RecordWebhookEvent(event.Provider, event.Type, "applied")
	return nil
}

func (s *Service) GetByIntent(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, domain.ErrInvalidEvent
	}
	record, err := s.repo.FindByIntent(ctx, s.db, intentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func validateEvent(event *domain.PaymentEvent) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return domain.ErrInvalidProvider
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return domain.ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		return domain.ErrInvalidEvent
	}

	event.IntentID = strings.TrimSpace(event.IntentID)
	event.ChargeID = strings.TrimSpace(event.ChargeID)

	switch event.Type {
	case domain.EventTypePaymentSucceeded:
		if event.IntentID == "" || event.ChargeID == "" {
			return domain.ErrInvalidEvent
		}
		if event.GrossAmount <= 0 {
			return domain.ErrInvalidAmount
		}
		currency := strings.TrimSpace(event.Currency)
		if currency == "" {
			return domain.ErrInvalidCurrency
		}
		event.Currency = strings.ToUpper(currency)
	case domain.EventTypeChargeRefunded:
		if event.IntentID == "" {
			return domain.ErrInvalidEvent
		}
		if event.RefundedAmount <= 0 {
			return domain.ErrInvalidAmount
		}
	case domain.EventTypeDisputeOpened, domain.EventTypeDisputeClosed:
		if event.ChargeID == "" {
			return domain.ErrInvalidEvent
		}
	default:
		return domain.ErrInvalidEvent
	}
	return nil
}

// applyEvent runs one atomic read-modify-write keyed by the event's intent or
// charge. Events for different keys never contend with each other.
func (s *Service) applyEvent(ctx context.Context, event *domain.PaymentEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch event.Type {
		case domain.EventTypePaymentSucceeded:
			return s.applySucceeded(ctx, tx, event)
		case domain.EventTypeChargeRefunded:
			return s.applyRefund(ctx, tx, event)
		case domain.EventTypeDisputeOpened:
			return s.applyDisputeOpened(ctx, tx, event)
		case domain.EventTypeDisputeClosed:
			return s.applyDisputeClosed(ctx, tx, event)
		default:
			return domain.ErrInvalidEvent
		}
	})
}

func (s *Service) applySucceeded(ctx context.Context, tx *gorm.DB, event *domain.PaymentEvent) error {
	existing, err := s.repo.FindByIntentForUpdate(ctx, tx, event.IntentID)
	if err != nil {
		return err
	}

	if existing == nil {
		now := time.Now().UTC()
		record := &domain.PaymentRecord{
			ID:                  s.genID.Generate(),
			TransactionIntentID: event.IntentID,
			ChargeID:            event.ChargeID,
			SellerID:            event.SellerID,
			OrderID:             event.OrderID,
			Currency:            event.Currency,
			AmountGross:         event.GrossAmount,
			AmountFee:           event.FeeAmount,
			AmountNet:           domain.Net(event.GrossAmount, event.FeeAmount, 0),
			Status:              domain.StatusSucceeded,
			SucceededAt:         event.OccurredAt.UTC(),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		inserted, err := s.repo.InsertRecord(ctx, tx, record)
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
		existing, err = s.repo.FindByIntentForUpdate(ctx, tx, event.IntentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrRecordNotFound
		}
	}

	// Duplicate delivery re-sets the same values; the row stays unchanged
	// apart from updated_at.
	existing.ChargeID = event.ChargeID
	existing.Currency = event.Currency
	existing.AmountGross = event.GrossAmount
	existing.AmountFee = event.FeeAmount
	existing.AmountNet = domain.Net(event.GrossAmount, event.FeeAmount, existing.RefundedTotal)
	existing.Status = domain.StatusSucceeded
	existing.SucceededAt = event.OccurredAt.UTC()
	return s.repo.UpdateRecord(ctx, tx, existing)
}

func (s *Service) applyRefund(ctx context.Context, tx *gorm.DB, event *domain.PaymentEvent) error {
	existing, err := s.repo.FindByIntentForUpdate(ctx, tx, event.IntentID)
	if err != nil {
		return err
	}
	if existing == nil {
		s.dropOrphan(event, "no ledger record for refunded intent")
		return nil
	}

	// The processor reports the cumulative refunded total, not a delta.
	existing.RefundedTotal = event.RefundedAmount
	existing.AmountNet = domain.Net(existing.AmountGross, existing.AmountFee, existing.RefundedTotal)
	if existing.RefundedTotal >= existing.AmountGross {
		existing.Status = domain.StatusRefunded
	} else {
		existing.Status = domain.StatusPartiallyRefunded
	}
	return s.repo.UpdateRecord(ctx, tx, existing)
}

func (s *Service) applyDisputeOpened(ctx context.Context, tx *gorm.DB, event *domain.PaymentEvent) error {
	existing, err := s.repo.FindByChargeForUpdate(ctx, tx, event.ChargeID)
	if err != nil {
		return err
	}
	if existing == nil {
		s.dropOrphan(event, "no ledger record for disputed charge")
		return nil
	}

	needsResponse := domain.DisputeNeedsResponse
	existing.Status = domain.StatusDisputed
	existing.DisputeStatus = &needsResponse
	// Funds are provisionally held while the dispute is open.
	existing.AmountNet = 0
	return s.repo.UpdateRecord(ctx, tx, existing)
}

func (s *Service) applyDisputeClosed(ctx context.Context, tx *gorm.DB, event *domain.PaymentEvent) error {
	existing, err := s.repo.FindByChargeForUpdate(ctx, tx, event.ChargeID)
	if err != nil {
		return err
	}
	if existing == nil {
		s.dropOrphan(event, "no ledger record for closed dispute")
		return nil
	}

	if event.DisputeOutcome == domain.DisputeOutcomeWon {
		won := domain.DisputeWon
		existing.Status = domain.StatusSucceeded
		existing.DisputeStatus = &won
		existing.AmountNet = domain.Net(existing.AmountGross, existing.AmountFee, existing.RefundedTotal)
	} else {
		lost := domain.DisputeLost
		existing.Status = domain.StatusDisputed
		existing.DisputeStatus = &lost
		existing.AmountNet = 0
	}
	return s.repo.UpdateRecord(ctx, tx, existing)
}

// dropOrphan logs an event that cannot be applied because its ledger record
// does not exist. These cannot be reconstructed safely, so they are dropped
// rather than retried.
func (s *Service) dropOrphan(event *domain.PaymentEvent, reason string) {
	s.log.Warn("dropping orphan lifecycle event",
		zap.String("provider", event.Provider),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
		zap.String("intent_id", event.IntentID),
		zap.String("charge_id", event.ChargeID),
		zap.String("reason", reason),
	)
	s.obsMetrics.RecordOrphanEvent(event.Type)
}
