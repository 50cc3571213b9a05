package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/pkg/db/pagination"
)

// Check results. Every checked record lands in exactly one bucket.
const (
	ResultOK                    = "ok"
	ResultMismatch              = "mismatch"
	ResultMissingFeeRate        = "missing_fee_rate"
	ResultMissingApplicationFee = "missing_application_fee"
)

// Row is one checked ledger record with the fee figures side by side.
type Row struct {
	RecordID     snowflake.ID               `json:"record_id"`
	IntentID     string                     `json:"transaction_intent_id"`
	SellerID     string                     `json:"seller_id"`
	OrderID      string                     `json:"order_id"`
	Status       ledgerdomain.PaymentStatus `json:"status"`
	SucceededAt  time.Time                  `json:"succeeded_at"`
	AmountGross  int64                      `json:"amount_gross"`
	ActualFee    *int64                     `json:"actual_fee"`
	ExpectedFee  *int64                     `json:"expected_fee"`
	ExpectedRate *float64                   `json:"expected_rate"`
	Result       string                     `json:"result"`
}

// Summary counts results across the checked sample.
type Summary struct {
	Total                 int64 `json:"total"`
	OK                    int64 `json:"ok"`
	Mismatch              int64 `json:"mismatch"`
	MissingFeeRate        int64 `json:"missing_fee_rate"`
	MissingApplicationFee int64 `json:"missing_application_fee"`
}

type Report struct {
	Rows     []*Row               `json:"rows"`
	Summary  Summary              `json:"summary"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}
