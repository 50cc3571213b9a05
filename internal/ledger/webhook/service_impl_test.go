package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/furima-share/fleapay/internal/config"
	"github.com/furima-share/fleapay/internal/ledger/domain"
	ledgerrepo "github.com/furima-share/fleapay/internal/ledger/repository"
	ledgerservice "github.com/furima-share/fleapay/internal/ledger/service"
	ledgerwebhook "github.com/furima-share/fleapay/internal/ledger/webhook"
)

const testSecret = "whsec_test"

func setupWebhook(t *testing.T) (*gorm.DB, domain.WebhookService, domain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.PaymentRecord{}, &domain.PaymentEventRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  ledgerrepo.Provide(),
	})
	webhookSvc := ledgerwebhook.NewService(ledgerwebhook.Params{
		Log:       zap.NewNop(),
		Cfg:       config.Config{StripeWebhookSecret: testSecret},
		LedgerSvc: ledgerSvc,
	})
	return db, webhookSvc, ledgerSvc
}

func signedHeader(payload []byte, at time.Time) http.Header {
	signed := fmt.Sprintf("%d.%s", at.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(signed))
	signature := hex.EncodeToString(mac.Sum(nil))

	header := http.Header{}
	header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", at.Unix(), signature))
	return header
}

func succeededPayload(eventID string, created time.Time) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"%s","type":"payment_intent.succeeded","created":%d,"data":{"object":{"id":"pi_1","amount":10000,"application_fee_amount":1000,"currency":"jpy","latest_charge":"ch_1","created":%d,"metadata":{"seller_id":"seller-1","order_id":"order-1"}}}}`,
		eventID, created.Unix(), created.Unix(),
	))
}

func TestIngestWebhookCreatesLedgerRecord(t *testing.T) {
	ctx := context.Background()
	_, webhookSvc, ledgerSvc := setupWebhook(t)

	now := time.Now().UTC()
	payload := succeededPayload("evt_1", now)

	if err := webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeader(payload, now)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	record, err := ledgerSvc.GetByIntent(ctx, "pi_1")
	if err != nil {
		t.Fatalf("get by intent: %v", err)
	}
	if record.SellerID != "seller-1" || record.OrderID != "order-1" {
		t.Fatalf("metadata not mapped: %+v", record)
	}
	if record.ChargeID != "ch_1" {
		t.Fatalf("charge_id = %q", record.ChargeID)
	}
	if record.AmountFee == nil || *record.AmountFee != 1000 {
		t.Fatalf("amount_fee = %v", record.AmountFee)
	}
	if record.Currency != "JPY" {
		t.Fatalf("currency = %q", record.Currency)
	}
}

func TestIngestWebhookAcknowledgesDuplicates(t *testing.T) {
	ctx := context.Background()
	db, webhookSvc, _ := setupWebhook(t)

	now := time.Now().UTC()
	payload := succeededPayload("evt_1", now)
	header := signedHeader(payload, now)

	for i := 0; i < 3; i++ {
		if err := webhookSvc.IngestWebhook(ctx, "stripe", payload, header); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	var events int64
	if err := db.Model(&domain.PaymentEventRecord{}).Count(&events).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if events != 1 {
		t.Fatalf("events = %d, want 1", events)
	}
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	_, webhookSvc, _ := setupWebhook(t)

	now := time.Now().UTC()
	payload := succeededPayload("evt_1", now)

	header := http.Header{}
	header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=deadbeef", now.Unix()))

	err := webhookSvc.IngestWebhook(ctx, "stripe", payload, header)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}

	err = webhookSvc.IngestWebhook(ctx, "stripe", payload, http.Header{})
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("missing header: err = %v", err)
	}
}

func TestIngestWebhookIgnoresUnmappedEventTypes(t *testing.T) {
	ctx := context.Background()
	_, webhookSvc, _ := setupWebhook(t)

	now := time.Now().UTC()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","type":"invoice.paid","created":%d,"data":{"object":{}}}`, now.Unix()))

	err := webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeader(payload, now))
	if !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("err = %v, want ErrEventIgnored", err)
	}
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	ctx := context.Background()
	_, webhookSvc, _ := setupWebhook(t)

	err := webhookSvc.IngestWebhook(ctx, "adyen", []byte(`{}`), http.Header{})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestIngestWebhookRefundFlow(t *testing.T) {
	ctx := context.Background()
	_, webhookSvc, ledgerSvc := setupWebhook(t)

	now := time.Now().UTC()
	payload := succeededPayload("evt_1", now)
	if err := webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeader(payload, now)); err != nil {
		t.Fatalf("succeeded: %v", err)
	}

	refund := []byte(fmt.Sprintf(
		`{"id":"evt_2","type":"charge.refunded","created":%d,"data":{"object":{"id":"ch_1","payment_intent":"pi_1","amount_refunded":4000}}}`,
		now.Unix(),
	))
	if err := webhookSvc.IngestWebhook(ctx, "stripe", refund, signedHeader(refund, now)); err != nil {
		t.Fatalf("refund: %v", err)
	}

	record, err := ledgerSvc.GetByIntent(ctx, "pi_1")
	if err != nil {
		t.Fatalf("get by intent: %v", err)
	}
	if record.Status != domain.StatusPartiallyRefunded || record.RefundedTotal != 4000 {
		t.Fatalf("unexpected record: %+v", record)
	}
}
