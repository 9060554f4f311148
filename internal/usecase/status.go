package usecase

import (
	"context"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/notify"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
)

const (
	minPreparationTime = 1
	maxPreparationTime = 240
)

// UpdateStatusRequest is a business status change asked for by a restaurant.
type UpdateStatusRequest struct {
	Status          string
	Reason          *string
	PreparationTime *int
}

// Refunder issues the refund of a cancelled paid order.
type Refunder interface {
	RefundCancelled(ctx context.Context, order *model.Order, reason string) (*model.Refund, error)
}

// StatusUseCase applies order status transitions.
type StatusUseCase struct {
	orders      repository.OrderRepository
	restaurants repository.RestaurantRepository
	codes       auth.CodeVerifier
	refunds     Refunder
	notifier    Notifier
	runner      TaskRunner
	logger      *slog.Logger
	clock       clock
}

// StatusDeps groups StatusUseCase collaborators.
type StatusDeps struct {
	Orders      repository.OrderRepository
	Restaurants repository.RestaurantRepository
	Codes       auth.CodeVerifier
	Refunds     Refunder
	Notifier    Notifier
	Runner      TaskRunner
	Logger      *slog.Logger
}

// NewStatusUseCase constructs StatusUseCase.
func NewStatusUseCase(d StatusDeps) *StatusUseCase {
	return &StatusUseCase{
		orders:      d.Orders,
		restaurants: d.Restaurants,
		codes:       d.Codes,
		refunds:     d.Refunds,
		notifier:    d.Notifier,
		runner:      d.Runner,
		logger:      d.Logger,
	}
}

// UpdateStatus applies a restaurant or admin status request to an order.
func (u *StatusUseCase) UpdateStatus(ctx context.Context, actor model.Actor, orderID string, req UpdateStatusRequest) (*model.Order, error) {
	if !actor.Is(model.RoleRestaurant, model.RoleAdmin) {
		return nil, domainErrors.ErrWrongRole
	}
	requested, ok := model.ParseRequestedStatus(req.Status)
	if !ok {
		return nil, domainErrors.ErrInvalidStatus
	}
	if req.PreparationTime != nil {
		if m := *req.PreparationTime; m < minPreparationTime || m > maxPreparationTime {
			return nil, domainErrors.ErrInvalidPreparationTime
		}
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	restaurant, err := u.restaurants.GetByID(ctx, order.RestaurantID)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	if !actor.Is(model.RoleAdmin) && restaurant.OwnerUserID != actor.UserID {
		return nil, domainErrors.ErrNotOwner
	}

	return u.apply(ctx, order, restaurant, requested, req)
}

// CompleteDelivery marks an order delivered by its assigned courier.
func (u *StatusUseCase) CompleteDelivery(ctx context.Context, actor model.Actor, orderID, code string) (*model.Order, error) {
	if !actor.Is(model.RoleCourier) {
		return nil, domainErrors.ErrWrongRole
	}
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	if order.CourierID == nil || *order.CourierID != actor.UserID {
		return nil, domainErrors.ErrNotAssignedCourier
	}
	if order.SecurityCodeHash != nil && *order.SecurityCodeHash != "" {
		if err := u.codes.Verify(*order.SecurityCodeHash, strings.TrimSpace(code)); err != nil {
			return nil, err
		}
	}
	restaurant, err := u.restaurants.GetByID(ctx, order.RestaurantID)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	return u.apply(ctx, order, restaurant, model.RequestedDelivered, UpdateStatusRequest{})
}

func (u *StatusUseCase) apply(ctx context.Context, order *model.Order, restaurant *model.Restaurant, requested model.RequestedStatus, req UpdateStatusRequest) (*model.Order, error) {
	transition, _ := model.TransitionFor(requested)
	if order.Claimed() && !transition.AllowedWhenClaimed {
		return nil, domainErrors.ErrOrderClaimed
	}
	if !transition.AllowedFrom(order.Status) {
		return nil, domainErrors.ErrTransitionNotAllowed
	}

	at := u.clock.now()
	upd := model.StatusUpdate{
		OrderID:          order.ID,
		From:             order.Status,
		To:               transition.Target,
		MarkReady:        transition.MarkReady,
		StampPreparation: transition.StampPreparation,
		AllowClaimed:     transition.AllowedWhenClaimed,
		At:               at,
	}
	if requested == model.RequestedRejected && req.Reason != nil {
		if reason := strings.TrimSpace(*req.Reason); reason != "" {
			upd.RejectionReason = &reason
		}
	}
	if requested == model.RequestedAccepted {
		upd.PreparationTime = req.PreparationTime
	}

	next := *order
	upd.Apply(&next)
	applied, err := u.orders.UpdateStatus(ctx, upd, newOrderEvent(model.OutboxOrderStatusChanged, &next, at))
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	if !applied {
		current, err := u.orders.GetByID(ctx, order.ID)
		if err != nil {
			return nil, domainErrors.Persistence(err)
		}
		if current.Claimed() && !transition.AllowedWhenClaimed {
			return nil, domainErrors.ErrOrderClaimed
		}
		return nil, domainErrors.ErrConcurrentUpdate
	}

	u.logger.Info("order status updated",
		slog.String("order_id", next.ID),
		slog.String("from", string(order.Status)),
		slog.String("to", string(next.Status)),
		slog.String("requested", string(requested)))

	if next.Status == model.OrderStatusCancelled && next.IsPaid() && next.HasPaymentIntent() && !next.HasRefund() {
		snapshot := next
		reason := ""
		if next.RejectionReason != nil {
			reason = *next.RejectionReason
		}
		u.runner.Go("refund:"+next.ID, func(ctx context.Context) error {
			_, err := u.refunds.RefundCancelled(ctx, &snapshot, reason)
			return err
		})
	}

	u.notifier.Dispatch(notify.CustomerStatus(&next, restaurant, requested, at))
	u.notifier.Dispatch(notify.DashboardStatus(&next, restaurant, at))
	return &next, nil
}
