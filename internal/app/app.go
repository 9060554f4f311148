package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/kafka"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOrderflowFacade,
		newHTTPServer,
		newOutboxRelay,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type relayParams struct {
	fx.In

	Outbox   repository.OutboxRepository
	Producer *kafka.Producer
	Config   *config.Config
	Logger   *slog.Logger
}

// newOutboxRelay returns nil when no event stream is configured; rows then stay pending.
func newOutboxRelay(p relayParams) *worker.OutboxRelay {
	if p.Producer == nil {
		p.Logger.Info("outbox relay disabled: no kafka brokers configured")
		return nil
	}
	o := p.Config.Outbox
	return worker.NewOutboxRelay(p.Outbox, p.Producer, o.PollInterval, o.BatchSize, p.Config.Notify.Workers, o.MaxAttempts, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Dispatcher *worker.Dispatcher
	Relay      *worker.OutboxRelay
	Config     *config.Config
}

// registerLifecycle must run after the adapter modules so that on stop the server and the
// background workers finish before brokers and the pool close.
func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderflow", slog.String("addr", p.Server.Addr))
			p.Dispatcher.Start(ctx)
			if p.Relay != nil {
				p.Relay.Start(ctx)
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			var errs []error
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
			if err := p.Dispatcher.Stop(shutdownCtx); err != nil {
				p.Logger.Warn("background tasks cancelled on shutdown", slog.String("error", err.Error()))
			}
			if p.Relay != nil {
				p.Relay.Stop()
			}
			p.Logger.Info("orderflow stopped")
			return errors.Join(errs...)
		},
	})
}
