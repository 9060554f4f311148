package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSucceeded is the processor status of a captured payment.
const PaymentSucceeded = "succeeded"

// Payment is the processor view of a payment intent.
type Payment struct {
	ID       string
	Status   string
	Amount   decimal.Decimal
	Currency string
	// OrderID comes from the payment metadata and is empty when the payment is unlinked.
	OrderID string
	Fees    *ProcessorFees
}

// Succeeded reports whether the processor captured the funds.
func (p *Payment) Succeeded() bool {
	return p.Status == PaymentSucceeded
}

// ProcessorFees is the processor fee breakdown of a captured payment.
type ProcessorFees struct {
	Fee decimal.Decimal
	Net decimal.Decimal
}

// DefaultRefundReason is used when the caller gives none.
const DefaultRefundReason = "requested_by_customer"

// RefundRequest asks the processor to return funds.
// Reason is the processor reason code; CancellationReason is the free-text cause kept in metadata.
type RefundRequest struct {
	PaymentIntentID    string
	OrderID            string
	Amount             decimal.Decimal
	Reason             string
	CancellationReason string
}

// Refund is a refund accepted by the processor.
type Refund struct {
	ID     string
	Amount decimal.Decimal
	At     time.Time
}

// ProcessorEvent types consumed from webhooks.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// ProcessorEvent is a verified webhook delivery.
type ProcessorEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	OrderID         string
}
