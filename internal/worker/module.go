package worker

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module provides the detached task dispatcher. Its lifecycle is owned by the app
// so that it drains after the HTTP server stops.
var Module = fx.Provide(newDispatcher)

type dispatcherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newDispatcher(p dispatcherParams) *Dispatcher {
	n := p.Config.Notify
	return NewDispatcher(n.Workers, n.QueueSize, n.Timeout, p.Logger)
}
