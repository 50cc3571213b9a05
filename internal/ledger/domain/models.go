package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentStatus tracks the lifecycle of one processor transaction.
type PaymentStatus string

const (
	StatusSucceeded         PaymentStatus = "succeeded"
	StatusPartiallyRefunded PaymentStatus = "partially_refunded"
	StatusRefunded          PaymentStatus = "refunded"
	StatusDisputed          PaymentStatus = "disputed"
)

type DisputeStatus string

const (
	DisputeNeedsResponse DisputeStatus = "needs_response"
	DisputeWon           DisputeStatus = "won"
	DisputeLost          DisputeStatus = "lost"
)

// PaymentRecord is the ledger row for a single transaction intent. It is
// created by the first payment_succeeded event and updated in place by every
// later lifecycle event for the same intent; it is never deleted.
type PaymentRecord struct {
	ID                  snowflake.ID   `json:"id" gorm:"primaryKey"`
	TransactionIntentID string         `json:"transaction_intent_id" gorm:"type:text;not null;uniqueIndex"`
	ChargeID            string         `json:"charge_id" gorm:"type:text;not null;index"`
	SellerID            string         `json:"seller_id" gorm:"type:text;not null;index"`
	OrderID             string         `json:"order_id" gorm:"type:text;index"`
	Currency            string         `json:"currency" gorm:"type:text;not null"`
	AmountGross         int64          `json:"amount_gross" gorm:"not null"`
	AmountFee           *int64         `json:"amount_fee,omitempty"`
	RefundedTotal       int64          `json:"refunded_total" gorm:"not null;default:0"`
	AmountNet           int64          `json:"amount_net" gorm:"not null"`
	Status              PaymentStatus  `json:"status" gorm:"type:text;not null"`
	DisputeStatus       *DisputeStatus `json:"dispute_status,omitempty" gorm:"type:text"`
	SucceededAt         time.Time      `json:"succeeded_at" gorm:"not null;index"`
	CreatedAt           time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time      `json:"updated_at" gorm:"not null"`
}

func (PaymentRecord) TableName() string { return "payment_records" }

// Net derives the settled amount. While disputed the caller forces 0
// instead.
func Net(gross int64, fee *int64, refunded int64) int64 {
	f := int64(0)
	if fee != nil {
		f = *fee
	}
	net := gross - f - refunded
	if net < 0 {
		return 0
	}
	return net
}

// PaymentEventRecord deduplicates at-least-once deliveries by the
// processor's event identifier.
type PaymentEventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (PaymentEventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypeChargeRefunded   = "charge_refunded"
	EventTypeDisputeOpened    = "dispute_opened"
	EventTypeDisputeClosed    = "dispute_closed"
)

const (
	DisputeOutcomeWon  = "won"
	DisputeOutcomeLost = "lost"
)

// PaymentEvent is the canonical lifecycle event parsed from a processor
// webhook.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string

	IntentID string
	ChargeID string
	SellerID string
	OrderID  string

	Currency       string
	GrossAmount    int64
	FeeAmount      *int64
	RefundedAmount int64

	// DisputeOutcome is set for dispute_closed events; anything other than
	// "won" counts as lost.
	DisputeOutcome string

	OccurredAt time.Time
	RawPayload []byte
}
