package push

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes the push gateway to fx graph.
var Module = fx.Provide(newGateway)

type gatewayParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// newGateway enables each platform whose credentials are configured.
func newGateway(p gatewayParams) (*Gateway, error) {
	var ios, android Sender

	if apns := p.Config.APNs; apns.KeyFile != "" {
		client, err := NewAPNsClient(APNsOptions{
			KeyFile:    apns.KeyFile,
			KeyID:      apns.KeyID,
			TeamID:     apns.TeamID,
			Topic:      apns.Topic,
			Production: apns.Production,
		}, p.Logger)
		if err != nil {
			return nil, err
		}
		ios = client
	} else {
		p.Logger.Info("apns disabled: no key configured")
	}

	if fcm := p.Config.FCM; fcm.CredentialsFile != "" {
		raw, err := os.ReadFile(fcm.CredentialsFile)
		if err != nil {
			return nil, err
		}
		httpClient, err := NewServiceAccountHTTPClient(p.Ctx, raw)
		if err != nil {
			return nil, err
		}
		client, err := NewFCMClient("", fcm.ProjectID, httpClient, p.Logger)
		if err != nil {
			return nil, err
		}
		android = client
	} else {
		p.Logger.Info("fcm disabled: no credentials configured")
	}

	return NewGateway(ios, android), nil
}
