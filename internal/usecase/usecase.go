package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/worker"
)

// PaymentProcessor is the external payment processor.
type PaymentProcessor interface {
	Payment(ctx context.Context, id string) (*model.Payment, error)
	Refund(ctx context.Context, req model.RefundRequest) (*model.Refund, error)
}

// Notifier queues a notification without waiting for delivery.
type Notifier interface {
	Dispatch(event model.NotificationEvent) bool
}

// TaskRunner runs detached work outside the request.
type TaskRunner interface {
	Go(name string, fn worker.Task) bool
}

// ReceiptPublisher sends print jobs to restaurant printers.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, job model.PrintJob) error
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// orderEventPayload is the body of outbox events on the order event stream.
type orderEventPayload struct {
	OrderID          string              `json:"order_id"`
	RestaurantID     string              `json:"restaurant_id,omitempty"`
	CustomerID       string              `json:"customer_id,omitempty"`
	Status           model.OrderStatus   `json:"status"`
	PaymentStatus    model.PaymentStatus `json:"payment_status"`
	TotalPaid        decimal.Decimal     `json:"total_paid"`
	Commission       decimal.Decimal     `json:"commission_amount"`
	RestaurantPayout decimal.Decimal     `json:"restaurant_payout"`
	RefundAmount     *decimal.Decimal    `json:"refund_amount,omitempty"`
	OccurredAt       time.Time           `json:"occurred_at"`
}

func newOrderEvent(kind string, o *model.Order, at time.Time) *model.OutboxEvent {
	p := orderEventPayload{
		OrderID:          o.ID,
		RestaurantID:     o.RestaurantID,
		CustomerID:       o.CustomerID,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		TotalPaid:        o.TotalPaid,
		Commission:       o.CommissionAmount,
		RestaurantPayout: o.RestaurantPayout,
		OccurredAt:       at,
	}
	if o.RefundAmount.Valid {
		amount := o.RefundAmount.Decimal
		p.RefundAmount = &amount
	}
	payload, _ := json.Marshal(p)
	return &model.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: o.ID,
		Type:        kind,
		Payload:     payload,
		Status:      model.OutboxPending,
		CreatedAt:   at,
	}
}

func logError(logger *slog.Logger, msg, orderID, channel string, err error) {
	logger.Error(msg,
		slog.String("order_id", orderID),
		slog.String("channel", channel),
		slog.String("error", err.Error()))
}
