package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	stripewebhook "github.com/stripe/stripe-go/v72/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/ledger/domain"
)

const ProviderStripe = "stripe"

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	LedgerSvc domain.Service
}

type Service struct {
	log           *zap.Logger
	ledgerSvc     domain.Service
	webhookSecret string
}

func NewService(p Params) domain.WebhookService {
	return &Service{
		log:           p.Log.Named("ledger.webhook"),
		ledgerSvc:     p.LedgerSvc,
		webhookSecret: strings.TrimSpace(p.Cfg.StripeWebhookSecret),
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidProvider
	}
	if provider != ProviderStripe {
		return domain.ErrProviderNotFound
	}

	event, err := s.verify(payload, headers)
	if err != nil {
		return err
	}

	ledgerEvent, err := mapStripeEvent(event, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.log.Debug("ignoring unmapped webhook event",
				zap.String("provider", provider),
				zap.String("event_type", string(event.Type)),
			)
		}
		return err
	}

	err = s.ledgerSvc.ProcessEvent(ctx, ledgerEvent)
	if errors.Is(err, domain.ErrEventAlreadyProcessed) {
		s.log.Debug("acknowledging duplicate webhook event",
			zap.String("provider", provider),
			zap.String("provider_event_id", ledgerEvent.ProviderEventID),
		)
		return nil
	}
	return err
}

func (s *Service) verify(payload []byte, headers http.Header) (*stripe.Event, error) {
	if s.webhookSecret != "" {
		sig := strings.TrimSpace(headers.Get("Stripe-Signature"))
		if sig == "" {
			return nil, domain.ErrInvalidSignature
		}
		event, err := stripewebhook.ConstructEvent(payload, sig, s.webhookSecret)
		if err != nil {
			return nil, domain.ErrInvalidSignature
		}
		return &event, nil
	}

	// No secret configured: accept unsigned payloads. Only sensible for
	// local development against the processor CLI.
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return &event, nil
}

type stripeIntent struct {
	ID                   string            `json:"id"`
	Amount               int64             `json:"amount"`
	ApplicationFeeAmount *int64            `json:"application_fee_amount"`
	Currency             string            `json:"currency"`
	Metadata             map[string]string `json:"metadata"`
	LatestCharge         string            `json:"latest_charge"`
	Charges              struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"charges"`
	Created int64 `json:"created"`
}

type stripeCharge struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	AmountRefunded int64  `json:"amount_refunded"`
	Created        int64  `json:"created"`
}

type stripeDispute struct {
	ID      string `json:"id"`
	Charge  string `json:"charge"`
	Status  string `json:"status"`
	Created int64  `json:"created"`
}

func mapStripeEvent(event *stripe.Event, payload []byte) (*domain.PaymentEvent, error) {
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	base := domain.PaymentEvent{
		Provider:        ProviderStripe,
		ProviderEventID: event.ID,
		OccurredAt:      timestamp(event.Created),
		RawPayload:      payload,
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripeIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		base.Type = domain.EventTypePaymentSucceeded
		base.IntentID = intent.ID
		base.ChargeID = chargeID(intent)
		base.SellerID = strings.TrimSpace(intent.Metadata["seller_id"])
		base.OrderID = strings.TrimSpace(intent.Metadata["order_id"])
		base.Currency = intent.Currency
		base.GrossAmount = intent.Amount
		base.FeeAmount = intent.ApplicationFeeAmount
		return &base, nil

	case "charge.refunded":
		var charge stripeCharge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		base.Type = domain.EventTypeChargeRefunded
		base.IntentID = charge.PaymentIntent
		base.ChargeID = charge.ID
		base.RefundedAmount = charge.AmountRefunded
		return &base, nil

	case "charge.dispute.created":
		var dispute stripeDispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		base.Type = domain.EventTypeDisputeOpened
		base.ChargeID = dispute.Charge
		return &base, nil

	case "charge.dispute.closed":
		var dispute stripeDispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		base.Type = domain.EventTypeDisputeClosed
		base.ChargeID = dispute.Charge
		if dispute.Status == "won" {
			base.DisputeOutcome = domain.DisputeOutcomeWon
		} else {
			base.DisputeOutcome = domain.DisputeOutcomeLost
		}
		return &base, nil

	default:
		return nil, domain.ErrEventIgnored
	}
}

func chargeID(intent stripeIntent) string {
	if id := strings.TrimSpace(intent.LatestCharge); id != "" {
		return id
	}
	if len(intent.Charges.Data) > 0 {
		return strings.TrimSpace(intent.Charges.Data[0].ID)
	}
	return ""
}

func timestamp(created int64) time.Time {
	if created <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(created, 0).UTC()
}
