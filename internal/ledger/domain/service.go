package domain

import (
	"context"
	"errors"
	"net/http"
)

type Service interface {
	// ProcessEvent applies one lifecycle event to the ledger. Duplicate
	// deliveries of the same provider event are acknowledged without
	// reapplying; orphan refund/dispute events are logged and dropped.
	ProcessEvent(ctx context.Context, event *PaymentEvent) error

	GetByIntent(ctx context.Context, intentID string) (*PaymentRecord, error)
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrRecordNotFound        = errors.New("payment_record_not_found")
)
