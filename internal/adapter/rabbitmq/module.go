package rabbitmq

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes the receipt publisher to fx graph. A nil publisher disables printing.
var Module = fx.Options(
	fx.Provide(newPublisher),
	fx.Invoke(registerLifecycle),
)

type publisherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newPublisher(p publisherParams) (*ReceiptPublisher, error) {
	if p.Config.AMQP.URL == "" {
		p.Logger.Info("receipt printing disabled: no amqp url configured")
		return nil, nil
	}
	return Dial(p.Config.AMQP.URL, p.Config.AMQP.Exchange)
}

type lifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Publisher *ReceiptPublisher
}

func registerLifecycle(p lifecycleParams) {
	if p.Publisher == nil {
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Publisher.Close()
		},
	})
}
