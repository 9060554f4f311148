package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// defaultLease is how long a claimed event stays invisible to other relays.
const defaultLease = time.Minute

// OutboxStore exposes the outbox operations required by the relay.
type OutboxStore interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string, maxAttempts int) error
}

// EventPublisher delivers one outbox event to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event model.OutboxEvent) error
}

// OutboxRelay polls the outbox and publishes claimed events concurrently.
type OutboxRelay struct {
	store        OutboxStore
	publisher    EventPublisher
	pollInterval time.Duration
	batchSize    int
	workers      int
	maxAttempts  int
	lease        time.Duration
	logger       *slog.Logger

	jobs   chan model.OutboxEvent
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewOutboxRelay constructs the relay worker pool.
func NewOutboxRelay(store OutboxStore, publisher EventPublisher, pollInterval time.Duration, batchSize, workers, maxAttempts int, logger *slog.Logger) *OutboxRelay {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &OutboxRelay{
		store:        store,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		maxAttempts:  maxAttempts,
		lease:        defaultLease,
		logger:       logger,
		jobs:         make(chan model.OutboxEvent, batchSize*workers),
	}
}

// Start launches background relaying.
func (r *OutboxRelay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *OutboxRelay) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *OutboxRelay) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.claimAndDispatch(ctx)
		}
	}
}

func (r *OutboxRelay) claimAndDispatch(ctx context.Context) {
	events, err := r.store.ClaimPending(ctx, r.batchSize, r.lease)
	if err != nil {
		r.logger.Error("claim outbox events failed", slog.String("error", err.Error()))
		return
	}
	for _, event := range events {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- event:
		}
	}
}

func (r *OutboxRelay) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handleEvent(ctx, event)
		}
	}
}

func (r *OutboxRelay) handleEvent(ctx context.Context, event model.OutboxEvent) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish outbox event failed",
			slog.String("event", event.ID),
			slog.String("type", event.Type),
			slog.Int("attempt", event.Attempts+1),
			slog.String("error", err.Error()))
		if err := r.store.MarkFailed(ctx, event.ID, err.Error(), r.maxAttempts); err != nil {
			r.logger.Error("mark outbox event failed", slog.String("event", event.ID), slog.String("error", err.Error()))
		}
		return
	}
	if err := r.store.MarkSent(ctx, event.ID); err != nil {
		r.logger.Error("mark outbox event sent failed", slog.String("event", event.ID), slog.String("error", err.Error()))
	}
}
