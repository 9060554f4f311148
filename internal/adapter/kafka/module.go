package kafka

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes the outbox producer to fx graph. A nil producer disables the relay.
var Module = fx.Options(
	fx.Provide(newProducer),
	fx.Invoke(registerLifecycle),
)

type producerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newProducer(p producerParams) *Producer {
	if len(p.Config.Kafka.Brokers) == 0 {
		p.Logger.Info("order event stream disabled: no kafka brokers configured")
		return nil
	}
	return NewProducer(p.Config.Kafka.Brokers, p.Config.Kafka.Topic)
}

type lifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Producer  *Producer
}

func registerLifecycle(p lifecycleParams) {
	if p.Producer == nil {
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Producer.Close()
		},
	})
}
