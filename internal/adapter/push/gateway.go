// Package push delivers mobile notifications through APNs and FCM.
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// ErrPlatformDisabled means no sender is configured for the token's platform.
var ErrPlatformDisabled = errors.New("push platform not configured")

// Message is the platform independent notification content.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message to one device token of a single platform.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// RejectedError means the provider refused the token itself; retrying will not help.
type RejectedError struct {
	Reason string
}

func (e RejectedError) Error() string {
	return fmt.Sprintf("device token rejected: %s", e.Reason)
}

// TooManyRequestsError represents rate limiting signal from a push provider.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Gateway routes each device token to the sender of its platform.
type Gateway struct {
	senders map[model.Platform]Sender
}

// NewGateway builds a gateway; a nil sender disables that platform.
func NewGateway(ios, android Sender) *Gateway {
	senders := make(map[model.Platform]Sender, 2)
	if ios != nil {
		senders[model.PlatformIOS] = ios
	}
	if android != nil {
		senders[model.PlatformAndroid] = android
	}
	return &Gateway{senders: senders}
}

// Send delivers msg to token using the sender registered for its platform.
func (g *Gateway) Send(ctx context.Context, token model.DeviceToken, msg Message) error {
	sender, ok := g.senders[token.Platform]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlatformDisabled, token.Platform)
	}
	return sender.Send(ctx, token.Token, msg)
}

// Enabled reports whether any platform can be reached.
func (g *Gateway) Enabled() bool {
	return len(g.senders) > 0
}
