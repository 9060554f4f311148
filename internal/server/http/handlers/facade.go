package handlers

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/live"
)

// AuthFacade verifies bearer credentials.
type AuthFacade interface {
	Verify(token string) (model.Actor, error)
}

// PaymentFacade settles confirmed payments.
type PaymentFacade interface {
	ConfirmPayment(ctx context.Context, paymentIntentID string) (orderID string, alreadyPaid bool, err error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// OrderFacade applies order status changes.
type OrderFacade interface {
	UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID, status string, reason *string, preparationTime *int) (*model.Order, error)
	CompleteDelivery(ctx context.Context, actor model.Actor, orderID, securityCode string) (*model.Order, error)
}

// StreamFacade attaches live dashboard connections.
type StreamFacade interface {
	Subscribe(ctx context.Context, actor model.Actor, conn live.Conn) (*model.Restaurant, func(), error)
}

// HealthFacade reports readiness.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// OrderflowFacade aggregates the full set of operations used across handlers.
type OrderflowFacade interface {
	AuthFacade
	PaymentFacade
	OrderFacade
	StreamFacade
	HealthFacade
}
