package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/polkiloo/orderflow/internal/domain/commission"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/notify"
)

// RefundUseCase returns funds for cancelled paid orders.
type RefundUseCase struct {
	orders    repository.OrderRepository
	processor PaymentProcessor
	notifier  Notifier
	logger    *slog.Logger
	clock     clock
}

// NewRefundUseCase constructs RefundUseCase.
func NewRefundUseCase(orders repository.OrderRepository, processor PaymentProcessor, notifier Notifier, logger *slog.Logger) *RefundUseCase {
	return &RefundUseCase{orders: orders, processor: processor, notifier: notifier, logger: logger}
}

// RefundCancelled refunds the item subtotal plus delivery fee of a cancelled order.
// The platform fee is retained. A processor failure is reported and not retried.
// reason is the cancellation cause; the processor always receives the default reason code.
func (u *RefundUseCase) RefundCancelled(ctx context.Context, order *model.Order, reason string) (*model.Refund, error) {
	if order.Status != model.OrderStatusCancelled || !order.IsPaid() || !order.HasPaymentIntent() || order.HasRefund() {
		return nil, domainErrors.ErrRefundNotEligible
	}

	items, err := u.orders.LineItems(ctx, order.ID)
	if err != nil {
		logError(u.logger, "load line items for refund failed, using stored subtotal", order.ID, "refund", err)
		items = nil
	}
	reason = strings.TrimSpace(reason)

	refund, err := u.processor.Refund(ctx, model.RefundRequest{
		PaymentIntentID:    *order.PaymentIntentID,
		OrderID:            order.ID,
		Amount:             commission.RefundAmount(items, order.Subtotal, order.DeliveryFee),
		Reason:             model.DefaultRefundReason,
		CancellationReason: reason,
	})
	if err != nil {
		logError(u.logger, "refund rejected by processor", order.ID, "refund", err)
		return nil, domainErrors.Upstream(err)
	}

	at := u.clock.now()
	refunded := *order
	refunded.PaymentStatus = model.PaymentStatusRefunded
	refunded.RefundID = &refund.ID
	refunded.RefundAmount.Decimal = refund.Amount
	refunded.RefundAmount.Valid = true
	refunded.RefundedAt = &refund.At

	applied, err := u.orders.MarkRefunded(ctx, order.ID, *refund, newOrderEvent(model.OutboxOrderRefunded, &refunded, at))
	if err != nil {
		logError(u.logger, "refund issued but not recorded", order.ID, "refund", err)
		return refund, domainErrors.Persistence(err)
	}
	if !applied {
		u.logger.Info("refund already recorded", slog.String("order_id", order.ID))
		return refund, nil
	}

	u.logger.Info("order refunded",
		slog.String("order_id", order.ID),
		slog.String("refund_id", refund.ID),
		slog.String("amount", refund.Amount.StringFixed(2)))
	u.notifier.Dispatch(notify.Refunded(&refunded, *refund, reason, at))
	return refund, nil
}
