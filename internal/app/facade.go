package app

import (
	"context"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/live"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// WebhookParser verifies and decodes processor webhook deliveries.
type WebhookParser interface {
	ParseEvent(payload []byte, signature string) (model.ProcessorEvent, error)
}

// HealthChecker reports storage reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// OrderflowFacade exposes the engine operations to the transport layer.
type OrderflowFacade struct {
	verifier    auth.Verifier
	settlement  *usecase.SettlementUseCase
	status      *usecase.StatusUseCase
	webhooks    WebhookParser
	restaurants repository.RestaurantRepository
	registry    *live.Registry
	health      HealthChecker
}

func NewOrderflowFacade(
	verifier auth.Verifier,
	settlement *usecase.SettlementUseCase,
	status *usecase.StatusUseCase,
	webhooks WebhookParser,
	restaurants repository.RestaurantRepository,
	registry *live.Registry,
	health HealthChecker,
) *OrderflowFacade {
	return &OrderflowFacade{
		verifier:    verifier,
		settlement:  settlement,
		status:      status,
		webhooks:    webhooks,
		restaurants: restaurants,
		registry:    registry,
		health:      health,
	}
}

func (f *OrderflowFacade) Verify(token string) (model.Actor, error) {
	return f.verifier.Verify(token)
}

func (f *OrderflowFacade) ConfirmPayment(ctx context.Context, paymentIntentID string) (string, bool, error) {
	res, err := f.settlement.Confirm(ctx, paymentIntentID)
	if err != nil {
		return "", false, err
	}
	return res.OrderID, res.AlreadyPaid, nil
}

func (f *OrderflowFacade) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := f.webhooks.ParseEvent(payload, signature)
	if err != nil {
		return err
	}
	return f.settlement.HandleProcessorEvent(ctx, event)
}

func (f *OrderflowFacade) UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID, status string, reason *string, preparationTime *int) (*model.Order, error) {
	return f.status.UpdateStatus(ctx, actor, orderID, usecase.UpdateStatusRequest{
		Status:          status,
		Reason:          reason,
		PreparationTime: preparationTime,
	})
}

func (f *OrderflowFacade) CompleteDelivery(ctx context.Context, actor model.Actor, orderID, securityCode string) (*model.Order, error) {
	return f.status.CompleteDelivery(ctx, actor, orderID, securityCode)
}

// Subscribe attaches conn to the live stream of the restaurant owned by actor.
func (f *OrderflowFacade) Subscribe(ctx context.Context, actor model.Actor, conn live.Conn) (*model.Restaurant, func(), error) {
	if !actor.Is(model.RoleRestaurant) {
		return nil, nil, domainErrors.ErrWrongRole
	}
	restaurant, err := f.restaurants.GetByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, nil, domainErrors.Persistence(err)
	}
	return restaurant, f.registry.Add(restaurant.ID, conn), nil
}

func (f *OrderflowFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
