package test

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/live"
)

// PaymentFacadeStub provides controllable behaviour for payment endpoints.
type PaymentFacadeStub struct {
	ConfirmFn func(context.Context, string) (string, bool, error)
	WebhookFn func(context.Context, []byte, string) error
}

// ConfirmPayment delegates to the override or confirms order "order-1".
func (s PaymentFacadeStub) ConfirmPayment(ctx context.Context, paymentIntentID string) (string, bool, error) {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, paymentIntentID)
	}
	return "order-1", false, nil
}

// HandleWebhook delegates to the override or accepts the delivery.
func (s PaymentFacadeStub) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, payload, signature)
	}
	return nil
}

// OrderFacadeStub provides controllable behaviour for order status endpoints.
type OrderFacadeStub struct {
	UpdateFn   func(context.Context, model.Actor, string, string, *string, *int) (*model.Order, error)
	CompleteFn func(context.Context, model.Actor, string, string) (*model.Order, error)
}

// UpdateOrderStatus delegates to the override or returns a preparing order.
func (s OrderFacadeStub) UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID, status string, reason *string, preparationTime *int) (*model.Order, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, actor, orderID, status, reason, preparationTime)
	}
	return &model.Order{ID: orderID, Status: model.OrderStatusPreparing, PaymentStatus: model.PaymentStatusPaid}, nil
}

// CompleteDelivery delegates to the override or returns a delivered order.
func (s OrderFacadeStub) CompleteDelivery(ctx context.Context, actor model.Actor, orderID, securityCode string) (*model.Order, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, actor, orderID, securityCode)
	}
	return &model.Order{ID: orderID, Status: model.OrderStatusDelivered, PaymentStatus: model.PaymentStatusPaid}, nil
}

// StreamFacadeStub attaches connections to a registry.
type StreamFacadeStub struct {
	Registry    *live.Registry
	Restaurant  *model.Restaurant
	SubscribeFn func(context.Context, model.Actor, live.Conn) (*model.Restaurant, func(), error)
}

// Subscribe delegates to the override or registers conn under Restaurant.
func (s StreamFacadeStub) Subscribe(ctx context.Context, actor model.Actor, conn live.Conn) (*model.Restaurant, func(), error) {
	if s.SubscribeFn != nil {
		return s.SubscribeFn(ctx, actor, conn)
	}
	r := s.Restaurant
	if r == nil {
		r = &model.Restaurant{ID: "r-1", OwnerUserID: actor.UserID}
	}
	if s.Registry == nil {
		return r, func() {}, nil
	}
	return r, s.Registry.Add(r.ID, conn), nil
}

// HealthFacadeStub reports the configured error.
type HealthFacadeStub struct {
	Err error
}

// HealthCheck returns Err.
func (s HealthFacadeStub) HealthCheck(context.Context) error {
	return s.Err
}

// OrderflowFacadeStub aggregates facade dependencies for HTTP layer tests.
type OrderflowFacadeStub struct {
	VerifierStub
	PaymentFacadeStub
	OrderFacadeStub
	StreamFacadeStub
	HealthFacadeStub
}
