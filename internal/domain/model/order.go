package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the persisted order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentStatus is the persisted settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is a customer order together with its financial fields.
type Order struct {
	ID            string
	RestaurantID  string
	CustomerID    string
	Status        OrderStatus
	PaymentStatus PaymentStatus

	Subtotal           decimal.Decimal
	Discount           decimal.Decimal
	DeliveryFee        decimal.Decimal
	PlatformFee        decimal.Decimal
	TotalPaid          decimal.Decimal
	CommissionAmount   decimal.Decimal
	RestaurantPayout   decimal.Decimal
	DeliveryCommission decimal.Decimal
	ProcessorFee       decimal.NullDecimal
	ProcessorNet       decimal.NullDecimal

	PaymentIntentID *string
	RefundID        *string
	RefundAmount    decimal.NullDecimal
	RefundedAt      *time.Time

	ReadyForDelivery bool
	RejectionReason  *string
	PreparationTime  *int
	SecurityCodeHash *string
	CourierID        *string

	CreatedAt            time.Time
	PreparationStartedAt *time.Time
	UpdatedAt            time.Time
}

// IsPaid reports whether the order has been settled and not refunded.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// Claimed reports whether a courier has taken the order.
func (o *Order) Claimed() bool {
	return o.CourierID != nil && *o.CourierID != ""
}

// HasRefund reports whether a refund has already been recorded.
func (o *Order) HasRefund() bool {
	return o.RefundID != nil && *o.RefundID != ""
}

// HasPaymentIntent reports whether a processor payment is linked.
func (o *Order) HasPaymentIntent() bool {
	return o.PaymentIntentID != nil && *o.PaymentIntentID != ""
}

// SubtotalAfterDiscount never goes below zero.
func (o *Order) SubtotalAfterDiscount() decimal.Decimal {
	discount := decimal.Min(o.Discount, o.Subtotal)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return o.Subtotal.Sub(discount)
}

// ShortID is the human facing order reference.
func (o *Order) ShortID() string {
	if len(o.ID) > 8 {
		return o.ID[:8]
	}
	return o.ID
}

// Settlement holds the reconciled financial fields written when a payment is confirmed.
type Settlement struct {
	OrderID            string
	PaymentIntentID    string
	TotalPaid          decimal.Decimal
	DeliveryFee        decimal.Decimal
	DeliveryCommission decimal.Decimal
	PlatformFee        decimal.Decimal
	Commission         decimal.Decimal
	Payout             decimal.Decimal
}

// Apply copies the settlement figures onto the order.
func (s Settlement) Apply(o *Order) {
	o.PaymentStatus = PaymentStatusPaid
	o.TotalPaid = s.TotalPaid
	o.DeliveryFee = s.DeliveryFee
	o.DeliveryCommission = s.DeliveryCommission
	o.PlatformFee = s.PlatformFee
	o.CommissionAmount = s.Commission
	o.RestaurantPayout = s.Payout
	if !o.HasPaymentIntent() && s.PaymentIntentID != "" {
		id := s.PaymentIntentID
		o.PaymentIntentID = &id
	}
}

// StatusUpdate describes one optimistic status write.
type StatusUpdate struct {
	OrderID          string
	From             OrderStatus
	To               OrderStatus
	MarkReady        bool
	StampPreparation bool
	RejectionReason  *string
	PreparationTime  *int
	AllowClaimed     bool
	At               time.Time
}

// Apply mirrors the persisted effect of the update onto the order.
func (u StatusUpdate) Apply(o *Order) {
	o.Status = u.To
	if u.MarkReady {
		o.ReadyForDelivery = true
	}
	if u.StampPreparation && o.PreparationStartedAt == nil {
		at := u.At
		o.PreparationStartedAt = &at
	}
	if u.RejectionReason != nil {
		o.RejectionReason = u.RejectionReason
	}
	if u.PreparationTime != nil {
		o.PreparationTime = u.PreparationTime
	}
	o.UpdatedAt = u.At
}
