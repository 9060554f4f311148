package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of detached work. It receives a context bounded by the dispatcher timeout.
type Task = func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Dispatcher runs detached side effects on a bounded queue drained by a fixed worker pool.
// Request handlers hand work over and return without waiting for it.
type Dispatcher struct {
	workers int
	timeout time.Duration
	logger  *slog.Logger

	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher constructs dispatcher with queueSize pending slots.
func NewDispatcher(workers, queueSize int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		workers: workers,
		timeout: timeout,
		logger:  logger,
		jobs:    make(chan job, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker pool. Tasks outlive ctx; only Stop ends them.
func (d *Dispatcher) Start(context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Go enqueues fn. It reports false when the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Go(name string, fn Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("background task rejected after shutdown", slog.String("task", name))
		return false
	}
	select {
	case d.jobs <- job{name: name, fn: fn}:
		return true
	default:
		d.logger.Warn("background queue full, task dropped", slog.String("task", name))
		return false
	}
}

// Stop refuses new work and waits for queued tasks to finish. When ctx expires first
// the remaining tasks are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx := d.ctx
	cancel := func() {}
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	defer cancel()

	start := time.Now()
	err := safeCall(ctx, j.fn)
	if err != nil {
		d.logger.Error("background task failed",
			slog.String("task", j.name),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	d.logger.Debug("background task done", slog.String("task", j.name), slog.Duration("elapsed", time.Since(start)))
}

func safeCall(ctx context.Context, fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
