package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/polkiloo/orderflow/internal/domain/commission"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/notify"
	"github.com/polkiloo/orderflow/internal/receipt"
)

const lateSettlementReason = "payment received after cancellation"

var errLateSettlement = errors.New("payment settled after cancellation")

// ConfirmResult reports the outcome of a payment confirmation.
type ConfirmResult struct {
	OrderID string
	// AlreadyPaid is set when this call did not perform the first settlement.
	AlreadyPaid bool
}

// SettlementUseCase reconciles processor payments with orders.
//
// Confirmation is idempotent: the client callback and the processor webhook may
// race for the same payment, and only the call that moves the order from unpaid
// to paid triggers loyalty, receipt and notification side effects.
type SettlementUseCase struct {
	orders         repository.OrderRepository
	restaurants    repository.RestaurantRepository
	loyalty        repository.LoyaltyRepository
	processor      PaymentProcessor
	notifier       Notifier
	runner         TaskRunner
	receipts       ReceiptPublisher
	refunds        Refunder
	internalBrands []string
	logger         *slog.Logger
	clock          clock
}

// SettlementDeps groups SettlementUseCase collaborators. Receipts may be nil.
// Refunds returns payments that land on orders cancelled before settlement.
type SettlementDeps struct {
	Orders         repository.OrderRepository
	Restaurants    repository.RestaurantRepository
	Loyalty        repository.LoyaltyRepository
	Processor      PaymentProcessor
	Notifier       Notifier
	Runner         TaskRunner
	Receipts       ReceiptPublisher
	Refunds        Refunder
	InternalBrands []string
	Logger         *slog.Logger
}

// NewSettlementUseCase constructs SettlementUseCase.
func NewSettlementUseCase(d SettlementDeps) *SettlementUseCase {
	return &SettlementUseCase{
		orders:         d.Orders,
		restaurants:    d.Restaurants,
		loyalty:        d.Loyalty,
		processor:      d.Processor,
		notifier:       d.Notifier,
		runner:         d.Runner,
		receipts:       d.Receipts,
		refunds:        d.Refunds,
		internalBrands: d.InternalBrands,
		logger:         d.Logger,
	}
}

// Confirm settles the order linked to a succeeded payment.
func (u *SettlementUseCase) Confirm(ctx context.Context, paymentIntentID string) (*ConfirmResult, error) {
	id := strings.TrimSpace(paymentIntentID)
	if id == "" {
		return nil, domainErrors.ErrMissingPaymentIntent
	}

	payment, err := u.processor.Payment(ctx, id)
	if err != nil {
		return nil, domainErrors.Upstream(err)
	}
	if !payment.Succeeded() {
		return nil, domainErrors.ErrPaymentNotSucceeded
	}
	if payment.OrderID == "" {
		return nil, domainErrors.ErrPaymentUnlinked
	}

	order, err := u.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	result := &ConfirmResult{OrderID: order.ID, AlreadyPaid: true}
	if order.PaymentStatus == model.PaymentStatusRefunded {
		u.logger.Info("payment confirmed for refunded order, ignoring", slog.String("order_id", order.ID))
		return result, nil
	}
	wasPaidBefore := order.IsPaid()

	restaurant, err := u.restaurants.GetByID(ctx, order.RestaurantID)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.Persistence(err)
		}
		u.logger.Warn("restaurant missing, settling with default commission",
			slog.String("order_id", order.ID),
			slog.String("restaurant_id", order.RestaurantID))
		restaurant = nil
	}

	settlement := u.settle(order, restaurant, payment)
	expected := model.PaymentStatusUnpaid
	if wasPaidBefore {
		expected = model.PaymentStatusPaid
	}

	at := u.clock.now()
	settled := *order
	settlement.Apply(&settled)
	settled.UpdatedAt = at

	var event *model.OutboxEvent
	if !wasPaidBefore {
		event = newOrderEvent(model.OutboxOrderPaid, &settled, at)
	}
	applied, err := u.orders.MarkPaid(ctx, settlement, expected, event)
	if err != nil {
		return nil, domainErrors.Persistence(err)
	}
	if !applied {
		u.logger.Debug("settlement already applied", slog.String("order_id", order.ID))
		return result, nil
	}

	if payment.Fees != nil {
		u.saveFees(ctx, order.ID, *payment.Fees)
	}
	if wasPaidBefore {
		return result, nil
	}
	result.AlreadyPaid = false
	if settled.Status == model.OrderStatusCancelled {
		u.refundLateSettlement(&settled)
		return result, nil
	}

	u.afterFirstSettlement(&settled, restaurant)
	return result, nil
}

// HandleProcessorEvent applies a verified webhook delivery.
func (u *SettlementUseCase) HandleProcessorEvent(ctx context.Context, event model.ProcessorEvent) error {
	switch event.Type {
	case model.EventPaymentSucceeded:
		if event.PaymentIntentID == "" {
			return domainErrors.ErrMissingPaymentIntent
		}
		_, err := u.Confirm(ctx, event.PaymentIntentID)
		return err
	case model.EventPaymentFailed, model.EventPaymentCanceled:
		if event.OrderID == "" {
			u.logger.Info("payment failure without linked order", slog.String("event", event.ID))
			return nil
		}
		at := u.clock.now()
		cancelled := &model.Order{ID: event.OrderID, Status: model.OrderStatusCancelled, PaymentStatus: model.PaymentStatusUnpaid}
		applied, err := u.orders.CancelUnpaid(ctx, event.OrderID, at, newOrderEvent(model.OutboxOrderStatusChanged, cancelled, at))
		if err != nil {
			return domainErrors.Persistence(err)
		}
		if applied {
			u.logger.Info("order cancelled after payment failure",
				slog.String("order_id", event.OrderID),
				slog.String("event_type", event.Type))
		}
		return nil
	default:
		u.logger.Debug("processor event ignored", slog.String("event", event.ID), slog.String("event_type", event.Type))
		return nil
	}
}

func (u *SettlementUseCase) settle(order *model.Order, restaurant *model.Restaurant, payment *model.Payment) model.Settlement {
	deliveryFee := commission.InferDeliveryFee(payment.Amount, order.Subtotal, order.Discount)
	split := commission.SplitSubtotal(order.Subtotal, restaurant, u.internalBrands)
	return model.Settlement{
		OrderID:            order.ID,
		PaymentIntentID:    payment.ID,
		TotalPaid:          payment.Amount,
		DeliveryFee:        deliveryFee,
		DeliveryCommission: commission.DeliveryCommission(deliveryFee),
		PlatformFee:        commission.PlatformFee,
		Commission:         split.Commission,
		Payout:             split.Payout,
	}
}

func (u *SettlementUseCase) saveFees(ctx context.Context, orderID string, fees model.ProcessorFees) {
	err := u.orders.SaveProcessorFees(ctx, orderID, fees)
	if err == nil || errors.Is(err, domainErrors.ErrSchemaUnavailable) {
		return
	}
	logError(u.logger, "store processor fees failed", orderID, "fees", err)
}

// refundLateSettlement returns a payment that succeeded after the order was cancelled.
// The order gets no loyalty, receipt or dispatch side effects.
func (u *SettlementUseCase) refundLateSettlement(order *model.Order) {
	u.logger.Warn("payment settled on cancelled order, refunding", slog.String("order_id", order.ID))
	if u.refunds == nil {
		logError(u.logger, "refund unavailable, order needs manual reconciliation", order.ID, "refund", errLateSettlement)
		return
	}
	snapshot := *order
	reason := lateSettlementReason
	if snapshot.RejectionReason != nil && strings.TrimSpace(*snapshot.RejectionReason) != "" {
		reason = *snapshot.RejectionReason
	}
	accepted := u.runner.Go("refund:"+order.ID, func(ctx context.Context) error {
		_, err := u.refunds.RefundCancelled(ctx, &snapshot, reason)
		return err
	})
	if !accepted {
		logError(u.logger, "refund not queued, order needs manual reconciliation", order.ID, "refund", errLateSettlement)
	}
}

func (u *SettlementUseCase) afterFirstSettlement(order *model.Order, restaurant *model.Restaurant) {
	snapshot := *order
	u.runner.Go("loyalty:"+order.ID, func(ctx context.Context) error {
		points := commission.LoyaltyPoints(snapshot.Subtotal, snapshot.Discount)
		if points <= 0 || snapshot.CustomerID == "" {
			return nil
		}
		_, err := u.loyalty.Credit(ctx, model.LoyaltyCredit{CustomerID: snapshot.CustomerID, OrderID: snapshot.ID, Points: points})
		return err
	})

	if restaurant == nil {
		u.logger.Warn("skipping restaurant notifications, restaurant unknown", slog.String("order_id", order.ID))
		return
	}
	at := u.clock.now()
	u.runner.Go("receipt:"+order.ID, func(ctx context.Context) error {
		return u.printReceipt(ctx, &snapshot, restaurant)
	})
	u.notifier.Dispatch(notify.NewOrder(&snapshot, restaurant, at))
	u.notifier.Dispatch(notify.OrderAvailable(&snapshot, restaurant, at))
}

func (u *SettlementUseCase) printReceipt(ctx context.Context, order *model.Order, restaurant *model.Restaurant) error {
	items, err := u.orders.LineItems(ctx, order.ID)
	if err != nil {
		logError(u.logger, "load line items for receipt failed", order.ID, "receipt", err)
		items = nil
	}
	at := u.clock.now()
	job := receipt.NewPrintJob(restaurant, order, items, at)
	u.notifier.Dispatch(notify.PrintReceipt(job, restaurant, at))
	if u.receipts == nil {
		return nil
	}
	return u.receipts.PublishReceipt(ctx, job)
}
