package payments

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes the processor client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) *Client {
	return NewClient(Options{
		SecretKey:         p.Config.Stripe.SecretKey,
		WebhookSecret:     p.Config.Stripe.WebhookSecret,
		APIURL:            p.Config.Stripe.APIURL,
		Timeout:           p.Config.Stripe.Timeout,
		MaxNetworkRetries: 2,
	}, p.Logger)
}
