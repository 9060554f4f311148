package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/email"
	"github.com/polkiloo/orderflow/internal/adapter/push"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/live"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module exposes the notification fan-out to fx graph.
var Module = fx.Provide(newFanout)

type fanoutParams struct {
	fx.In

	Tokens     repository.DeviceTokenRepository
	Users      repository.UserRepository
	Gateway    *push.Gateway
	Registry   *live.Registry
	Email      *email.SMTPSender
	Dispatcher *worker.Dispatcher
	Logger     *slog.Logger
}

func newFanout(p fanoutParams) *Fanout {
	ch := Channels{Live: p.Registry}
	if p.Gateway != nil && p.Gateway.Enabled() {
		ch.Push = p.Gateway
	}
	if p.Email != nil {
		ch.Email = p.Email
	}
	return NewFanout(p.Tokens, p.Users, ch, p.Dispatcher, p.Logger)
}
