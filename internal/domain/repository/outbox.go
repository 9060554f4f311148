package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OutboxRepository drives the relay of persisted order events.
type OutboxRepository interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string, maxAttempts int) error
}
