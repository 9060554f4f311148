package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
//
// Conditional writes return false when no row matched their guard; the caller
// treats that as someone else having already applied the change. An outbox
// event, when given, is stored in the same transaction only if a row changed.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*model.Order, error)
	LineItems(ctx context.Context, orderID string) ([]model.LineItem, error)
	MarkPaid(ctx context.Context, s model.Settlement, expected model.PaymentStatus, event *model.OutboxEvent) (bool, error)
	SaveProcessorFees(ctx context.Context, orderID string, fees model.ProcessorFees) error
	UpdateStatus(ctx context.Context, upd model.StatusUpdate, event *model.OutboxEvent) (bool, error)
	MarkRefunded(ctx context.Context, orderID string, refund model.Refund, event *model.OutboxEvent) (bool, error)
	CancelUnpaid(ctx context.Context, orderID string, at time.Time, event *model.OutboxEvent) (bool, error)
}

// RestaurantRepository reads partner restaurants.
type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (*model.Restaurant, error)
	GetByOwner(ctx context.Context, userID string) (*model.Restaurant, error)
}
