package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type apnsPushFunc func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error)

// APNsClient implements Sender with token based APNs authentication.
type APNsClient struct {
	push   apnsPushFunc
	topic  string
	logger *slog.Logger
}

// APNsOptions locates the signing key and selects the environment.
type APNsOptions struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// NewAPNsClient loads the .p8 key and connects to the selected APNs environment.
func NewAPNsClient(opts APNsOptions, logger *slog.Logger) (*APNsClient, error) {
	key, err := token.AuthKeyFromFile(opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load apns key: %w", err)
	}
	client := apns2.NewTokenClient(&token.Token{AuthKey: key, KeyID: opts.KeyID, TeamID: opts.TeamID})
	if opts.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	push := func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error) {
		return client.PushWithContext(ctx, n)
	}
	return newAPNsClient(push, opts.Topic, logger), nil
}

func newAPNsClient(push apnsPushFunc, topic string, logger *slog.Logger) *APNsClient {
	return &APNsClient{push: push, topic: topic, logger: logger}
}

func (c *APNsClient) Send(ctx context.Context, deviceToken string, msg Message) error {
	p := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		p.Custom(k, v)
	}

	res, err := c.push(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.topic,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	})
	if err != nil {
		return err
	}
	if res.Sent() {
		return nil
	}

	switch {
	case res.StatusCode == http.StatusGone,
		res.Reason == apns2.ReasonBadDeviceToken,
		res.Reason == apns2.ReasonUnregistered,
		res.Reason == apns2.ReasonDeviceTokenNotForTopic:
		return RejectedError{Reason: res.Reason}
	case res.StatusCode == http.StatusTooManyRequests:
		return TooManyRequestsError{RetryAfter: parseRetryAfter("")}
	default:
		c.logger.Error("apns request failed", slog.Int("status", res.StatusCode), slog.String("reason", res.Reason))
		return fmt.Errorf("apns error: %d %s", res.StatusCode, res.Reason)
	}
}
