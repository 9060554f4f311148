package email

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes the SMTP sender to fx graph. A nil sender disables email.
var Module = fx.Provide(newSender)

type senderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newSender(p senderParams) *SMTPSender {
	if p.Config.SMTP.Host == "" {
		p.Logger.Info("email disabled: no smtp host configured")
		return nil
	}
	return NewSMTPSender(Options{
		Host:     p.Config.SMTP.Host,
		Port:     p.Config.SMTP.Port,
		User:     p.Config.SMTP.User,
		Password: p.Config.SMTP.Password,
		From:     p.Config.SMTP.From,
	}, p.Logger)
}
