package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/payments"
	"github.com/polkiloo/orderflow/internal/adapter/rabbitmq"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/notify"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newSettlementUseCase,
	newRefundUseCase,
	newStatusUseCase,
)

type settlementParams struct {
	fx.In

	Config      *config.Config
	Orders      repository.OrderRepository
	Restaurants repository.RestaurantRepository
	Loyalty     repository.LoyaltyRepository
	Processor   *payments.Client
	Fanout      *notify.Fanout
	Dispatcher  *worker.Dispatcher
	Receipts    *rabbitmq.ReceiptPublisher
	Refunds     *RefundUseCase
	Logger      *slog.Logger
}

func newSettlementUseCase(p settlementParams) *SettlementUseCase {
	d := SettlementDeps{
		Orders:         p.Orders,
		Restaurants:    p.Restaurants,
		Loyalty:        p.Loyalty,
		Processor:      p.Processor,
		Notifier:       p.Fanout,
		Runner:         p.Dispatcher,
		Refunds:        p.Refunds,
		InternalBrands: p.Config.InternalBrands,
		Logger:         p.Logger,
	}
	if p.Receipts != nil {
		d.Receipts = p.Receipts
	}
	return NewSettlementUseCase(d)
}

type refundParams struct {
	fx.In

	Orders    repository.OrderRepository
	Processor *payments.Client
	Fanout    *notify.Fanout
	Logger    *slog.Logger
}

func newRefundUseCase(p refundParams) *RefundUseCase {
	return NewRefundUseCase(p.Orders, p.Processor, p.Fanout, p.Logger)
}

type statusParams struct {
	fx.In

	Orders      repository.OrderRepository
	Restaurants repository.RestaurantRepository
	Codes       auth.CodeVerifier
	Refunds     *RefundUseCase
	Fanout      *notify.Fanout
	Dispatcher  *worker.Dispatcher
	Logger      *slog.Logger
}

func newStatusUseCase(p statusParams) *StatusUseCase {
	return NewStatusUseCase(StatusDeps{
		Orders:      p.Orders,
		Restaurants: p.Restaurants,
		Codes:       p.Codes,
		Refunds:     p.Refunds,
		Notifier:    p.Fanout,
		Runner:      p.Dispatcher,
		Logger:      p.Logger,
	})
}
