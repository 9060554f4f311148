// Package payments talks to Stripe: payment lookup, refunds and webhook verification.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

const (
	orderIDMetadataKey            = "order_id"
	cancellationReasonMetadataKey = "cancellation_reason"
	balanceExpand                 = "latest_charge.balance_transaction"
)

// Options configures the processor client.
type Options struct {
	SecretKey     string
	WebhookSecret string
	// APIURL points the client at a non default endpoint.
	APIURL            string
	Timeout           time.Duration
	MaxNetworkRetries int64
}

// Client implements payment processor operations on top of stripe-go.
type Client struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewClient builds a Stripe client with its own backend so tests can redirect it.
func NewClient(opts Options, logger *slog.Logger) *Client {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: opts.Timeout},
		LeveledLogger:     &leveledLogger{logger: logger},
		MaxNetworkRetries: stripe.Int64(opts.MaxNetworkRetries),
	}
	if opts.APIURL != "" {
		cfg.URL = stripe.String(opts.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := &client.API{}
	api.Init(opts.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Client{api: api, webhookSecret: opts.WebhookSecret, timeout: opts.Timeout, logger: logger}
}

// Payment fetches a payment intent together with its balance transaction.
func (c *Client) Payment(ctx context.Context, id string) (*model.Payment, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand(balanceExpand)

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, translate(err)
	}
	return toPayment(pi), nil
}

// Refund creates a refund keyed by the order so a repeated call returns the same refund.
func (c *Client) Refund(ctx context.Context, req model.RefundRequest) (*model.Refund, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reason := req.Reason
	if reason == "" {
		reason = model.DefaultRefundReason
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(toCents(req.Amount)),
		Reason:        stripe.String(reason),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + req.OrderID)
	params.AddMetadata(orderIDMetadataKey, req.OrderID)
	if req.CancellationReason != "" {
		params.AddMetadata(cancellationReasonMetadataKey, req.CancellationReason)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return nil, translate(err)
	}
	return &model.Refund{
		ID:     refund.ID,
		Amount: fromCents(refund.Amount),
		At:     time.Unix(refund.Created, 0).UTC(),
	}, nil
}

// ParseEvent verifies the webhook signature and extracts the payment intent it concerns.
func (c *Client) ParseEvent(payload []byte, signature string) (model.ProcessorEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return model.ProcessorEvent{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}

	result := model.ProcessorEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return result, nil
	}
	switch event.Type {
	case model.EventPaymentSucceeded, model.EventPaymentFailed, model.EventPaymentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return model.ProcessorEvent{}, fmt.Errorf("%w: malformed payment intent: %v", domainErrors.ErrValidation, err)
		}
		result.PaymentIntentID = pi.ID
		result.OrderID = pi.Metadata[orderIDMetadataKey]
	}
	return result, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func toPayment(pi *stripe.PaymentIntent) *model.Payment {
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	p := &model.Payment{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   fromCents(amount),
		Currency: string(pi.Currency),
		OrderID:  pi.Metadata[orderIDMetadataKey],
	}
	if pi.LatestCharge != nil && pi.LatestCharge.BalanceTransaction != nil {
		bt := pi.LatestCharge.BalanceTransaction
		p.Fees = &model.ProcessorFees{Fee: fromCents(bt.Fee), Net: fromCents(bt.Net)}
	}
	return p
}

func translate(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domainErrors.ErrPaymentNotFound, stripeErr.Msg)
	}
	return domainErrors.Upstream(err)
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
