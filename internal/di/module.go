package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/email"
	"github.com/polkiloo/orderflow/internal/adapter/kafka"
	"github.com/polkiloo/orderflow/internal/adapter/payments"
	"github.com/polkiloo/orderflow/internal/adapter/push"
	"github.com/polkiloo/orderflow/internal/adapter/rabbitmq"
	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/live"
	"github.com/polkiloo/orderflow/internal/logger"
	"github.com/polkiloo/orderflow/internal/notify"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/router"
	"github.com/polkiloo/orderflow/internal/storage/postgres"
	"github.com/polkiloo/orderflow/internal/usecase"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module composes the application graph. Adapter modules come before app so their
// stop hooks run after the server and the background workers have finished.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		payments.Module,
		push.Module,
		email.Module,
		rabbitmq.Module,
		kafka.Module,
		live.Module,
		worker.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(
			func(c *payments.Client) app.WebhookParser { return c },
			func(s *postgres.Storage) app.HealthChecker { return s },
			func(f *app.OrderflowFacade) handlers.OrderflowFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
