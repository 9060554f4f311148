package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/orderflow/internal/config"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

const testWebhookSecret = "whsec_test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		APIURL:        srv.URL,
		Timeout:       2 * time.Second,
	}, testLogger())
}

func TestClientPayment(t *testing.T) {
	var gotQuery url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		switch r.URL.Path {
		case "/v1/payment_intents/pi_ok":
			_, _ = io.WriteString(w, `{
				"id": "pi_ok", "object": "payment_intent", "status": "succeeded",
				"amount": 2500, "amount_received": 2500, "currency": "eur",
				"metadata": {"order_id": "o-1"},
				"latest_charge": {"id": "ch_1", "object": "charge",
					"balance_transaction": {"id": "txn_1", "object": "balance_transaction", "fee": 61, "net": 2439}}
			}`)
		case "/v1/payment_intents/pi_plain":
			_, _ = io.WriteString(w, `{"id": "pi_plain", "object": "payment_intent", "status": "processing", "amount": 1999, "currency": "eur", "metadata": {}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error": {"type": "invalid_request_error", "code": "resource_missing", "message": "No such payment_intent"}}`)
		}
	})

	payment, err := client.Payment(context.Background(), "pi_ok")
	require.NoError(t, err)
	assert.Equal(t, "latest_charge.balance_transaction", gotQuery.Get("expand[0]"))
	assert.True(t, payment.Succeeded())
	assert.Equal(t, "o-1", payment.OrderID)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("25.00")))
	require.NotNil(t, payment.Fees)
	assert.True(t, payment.Fees.Fee.Equal(decimal.RequireFromString("0.61")))
	assert.True(t, payment.Fees.Net.Equal(decimal.RequireFromString("24.39")))

	payment, err = client.Payment(context.Background(), "pi_plain")
	require.NoError(t, err)
	assert.False(t, payment.Succeeded())
	assert.Empty(t, payment.OrderID)
	assert.Nil(t, payment.Fees)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("19.99")))

	_, err = client.Payment(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	assert.ErrorIs(t, err, domainErrors.ErrUpstream)
}

func TestClientRefund(t *testing.T) {
	var form url.Values
	var idempotencyKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/refunds" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = r.ParseForm()
		form = r.PostForm
		idempotencyKey = r.Header.Get("Idempotency-Key")
		_, _ = io.WriteString(w, `{"id": "re_1", "object": "refund", "amount": 1800, "created": 1717243200, "status": "succeeded"}`)
	})

	refund, err := client.Refund(context.Background(), model.RefundRequest{
		PaymentIntentID:    "pi_ok",
		OrderID:            "o-1",
		Amount:             decimal.RequireFromString("18.00"),
		CancellationReason: "closed early",
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.True(t, refund.Amount.Equal(decimal.RequireFromString("18.00")))
	assert.Equal(t, time.Unix(1717243200, 0).UTC(), refund.At)

	assert.Equal(t, "refund-o-1", idempotencyKey)
	assert.Equal(t, "pi_ok", form.Get("payment_intent"))
	assert.Equal(t, "1800", form.Get("amount"))
	assert.Equal(t, model.DefaultRefundReason, form.Get("reason"))
	assert.Equal(t, "o-1", form.Get("metadata[order_id]"))
	assert.Equal(t, "closed early", form.Get("metadata[cancellation_reason]"))
}

func TestClientRefundFailureIsUpstream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"type": "invalid_request_error", "code": "charge_already_refunded", "message": "already refunded"}}`)
	})
	_, err := client.Refund(context.Background(), model.RefundRequest{PaymentIntentID: "pi", OrderID: "o", Amount: decimal.NewFromInt(1), Reason: "duplicate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrUpstream)
	assert.NotErrorIs(t, err, domainErrors.ErrPaymentNotFound)
}

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestClientParseEvent(t *testing.T) {
	client := NewClient(Options{SecretKey: "sk", WebhookSecret: testWebhookSecret}, testLogger())

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded",
		"data":{"object":{"id":"pi_ok","object":"payment_intent","metadata":{"order_id":"o-1"}}}}`)
	event, err := client.ParseEvent(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, model.ProcessorEvent{ID: "evt_1", Type: model.EventPaymentSucceeded, PaymentIntentID: "pi_ok", OrderID: "o-1"}, event)

	other := []byte(`{"id":"evt_2","object":"event","type":"charge.dispute.created","data":{"object":{"id":"dp_1"}}}`)
	event, err = client.ParseEvent(other, signPayload(other, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "charge.dispute.created", event.Type)
	assert.Empty(t, event.PaymentIntentID)

	_, err = client.ParseEvent(payload, signPayload(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
	assert.ErrorIs(t, err, domainErrors.ErrValidation)

	_, err = client.ParseEvent(payload, "")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(1800), toCents(decimal.RequireFromString("18.00")))
	assert.Equal(t, int64(1235), toCents(decimal.RequireFromString("12.345")))
	assert.True(t, fromCents(61).Equal(decimal.RequireFromString("0.61")))
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := &config.Config{Stripe: config.StripeConfig{SecretKey: "sk", WebhookSecret: "whsec", Timeout: time.Second}}
	client := newClient(clientParams{Config: cfg, Logger: testLogger()})
	require.NotNil(t, client)
	assert.Equal(t, "whsec", client.webhookSecret)
	assert.Equal(t, time.Second, client.timeout)
}
