// Package notify fans order events out to push, live dashboards and email.
package notify

import (
	"context"
	"log/slog"

	"github.com/polkiloo/orderflow/internal/adapter/push"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/worker"
)

// PushGateway delivers to a single device token.
type PushGateway interface {
	Send(ctx context.Context, token model.DeviceToken, msg push.Message) error
}

// LiveBroadcaster writes to open restaurant dashboards.
type LiveBroadcaster interface {
	Broadcast(restaurantID string, event model.NotificationEvent) bool
}

// EmailSender renders and sends a named template.
type EmailSender interface {
	Send(ctx context.Context, to, template string, vars map[string]string) error
}

// TaskRunner runs detached work.
type TaskRunner interface {
	Go(name string, fn worker.Task) bool
}

// TokenError is a push failure for one device token.
type TokenError struct {
	UserID   string
	Platform model.Platform
	Err      string
}

// DeliveryReport summarises one fan-out.
type DeliveryReport struct {
	Sent    int
	Total   int
	Errors  []TokenError
	Live    bool
	Emailed bool
}

// Fanout resolves recipients and delivers events on every requested channel.
// A failing channel or token never stops the others.
type Fanout struct {
	tokens repository.DeviceTokenRepository
	users  repository.UserRepository
	push   PushGateway
	live   LiveBroadcaster
	email  EmailSender
	runner TaskRunner
	logger *slog.Logger
}

// Channels wires the optional delivery channels; nil members are skipped.
type Channels struct {
	Push  PushGateway
	Live  LiveBroadcaster
	Email EmailSender
}

// NewFanout constructs the fan-out over the given channels.
func NewFanout(tokens repository.DeviceTokenRepository, users repository.UserRepository, ch Channels, runner TaskRunner, logger *slog.Logger) *Fanout {
	return &Fanout{
		tokens: tokens,
		users:  users,
		push:   ch.Push,
		live:   ch.Live,
		email:  ch.Email,
		runner: runner,
		logger: logger,
	}
}

// Dispatch queues event for delivery and returns at once.
func (f *Fanout) Dispatch(event model.NotificationEvent) bool {
	return f.runner.Go("notify:"+string(event.Type), func(ctx context.Context) error {
		f.Deliver(ctx, event)
		return nil
	})
}

// Deliver runs the fan-out synchronously.
func (f *Fanout) Deliver(ctx context.Context, event model.NotificationEvent) DeliveryReport {
	var report DeliveryReport

	if event.Channels.Has(model.ChannelLive) && event.Target.Kind == model.TargetRestaurant && f.live != nil {
		report.Live = f.live.Broadcast(event.Target.ID, event)
	}
	if event.Channels.Has(model.ChannelPush) && f.push != nil {
		f.deliverPush(ctx, event, &report)
	}
	if event.Channels.Has(model.ChannelEmail) && event.Template != "" && f.email != nil {
		report.Emailed = f.deliverEmail(ctx, event)
	}

	f.logger.Debug("notification delivered",
		slog.String("order_id", event.OrderID),
		slog.String("type", string(event.Type)),
		slog.Int("sent", report.Sent),
		slog.Int("total", report.Total),
		slog.Bool("live", report.Live),
		slog.Bool("emailed", report.Emailed))
	return report
}

func (f *Fanout) deliverPush(ctx context.Context, event model.NotificationEvent, report *DeliveryReport) {
	tokens, err := f.recipientTokens(ctx, event.Target)
	if err != nil {
		f.logger.Warn("resolve device tokens failed",
			slog.String("order_id", event.OrderID),
			slog.String("channel", "push"),
			slog.String("error", err.Error()))
		return
	}

	buckets := make(map[model.Platform][]model.DeviceToken, 2)
	for _, t := range tokens {
		buckets[t.Platform] = append(buckets[t.Platform], t)
	}

	msg := pushMessage(event)
	for _, platform := range []model.Platform{model.PlatformIOS, model.PlatformAndroid} {
		for _, t := range buckets[platform] {
			report.Total++
			if err := f.push.Send(ctx, t, msg); err != nil {
				report.Errors = append(report.Errors, TokenError{UserID: t.UserID, Platform: platform, Err: err.Error()})
				continue
			}
			report.Sent++
		}
		delete(buckets, platform)
	}
	for platform, rest := range buckets {
		for _, t := range rest {
			report.Total++
			report.Errors = append(report.Errors, TokenError{UserID: t.UserID, Platform: platform, Err: "unsupported platform"})
		}
	}

	if len(report.Errors) > 0 {
		f.logger.Warn("push delivery incomplete",
			slog.String("order_id", event.OrderID),
			slog.String("channel", "push"),
			slog.Int("failed", len(report.Errors)),
			slog.Int("total", report.Total))
	}
}

func (f *Fanout) recipientTokens(ctx context.Context, target model.Target) ([]model.DeviceToken, error) {
	switch target.Kind {
	case model.TargetCouriers:
		return f.tokens.ListByRole(ctx, model.RoleCourier)
	case model.TargetRestaurant:
		if target.UserID == "" {
			return nil, nil
		}
		return f.tokens.ListByUsers(ctx, target.UserID)
	default:
		return f.tokens.ListByUsers(ctx, target.ID)
	}
}

func (f *Fanout) deliverEmail(ctx context.Context, event model.NotificationEvent) bool {
	if event.Target.Kind != model.TargetUser {
		return false
	}
	user, err := f.users.GetByID(ctx, event.Target.ID)
	if err != nil || user.Email == "" {
		if err != nil {
			f.logger.Warn("resolve email recipient failed",
				slog.String("order_id", event.OrderID),
				slog.String("channel", "email"),
				slog.String("error", err.Error()))
		}
		return false
	}

	vars := make(map[string]string, len(event.Data)+1)
	for k, v := range event.Data {
		vars[k] = v
	}
	vars["first_name"] = user.FirstName

	if err := f.email.Send(ctx, user.Email, event.Template, vars); err != nil {
		f.logger.Warn("send email failed",
			slog.String("order_id", event.OrderID),
			slog.String("channel", "email"),
			slog.String("template", event.Template),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func pushMessage(event model.NotificationEvent) push.Message {
	data := make(map[string]string, len(event.Data)+2)
	for k, v := range event.Data {
		data[k] = v
	}
	data["type"] = string(event.Type)
	if event.OrderID != "" {
		data["orderId"] = event.OrderID
	}
	return push.Message{Title: event.Title, Body: event.Body, Data: data}
}
