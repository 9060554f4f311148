package test

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// ProcessorStub fakes the payment processor.
type ProcessorStub struct {
	mu sync.Mutex

	Payments   map[string]*model.Payment
	PaymentErr error
	RefundFn   func(model.RefundRequest) (*model.Refund, error)

	PaymentCalls int
	Refunds      []model.RefundRequest
}

// Payment returns the stored payment or a not found error.
func (s *ProcessorStub) Payment(ctx context.Context, id string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PaymentCalls++
	if s.PaymentErr != nil {
		return nil, s.PaymentErr
	}
	p, ok := s.Payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

// Refund records the request and answers with the override or a fixed refund.
func (s *ProcessorStub) Refund(ctx context.Context, req model.RefundRequest) (*model.Refund, error) {
	s.mu.Lock()
	s.Refunds = append(s.Refunds, req)
	fn := s.RefundFn
	s.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &model.Refund{ID: "re_" + req.OrderID, Amount: req.Amount}, nil
}

// RefundRequests returns a snapshot of recorded refunds.
func (s *ProcessorStub) RefundRequests() []model.RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RefundRequest(nil), s.Refunds...)
}

// NotifierStub records dispatched notifications.
type NotifierStub struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

// Dispatch records the event.
func (s *NotifierStub) Dispatch(event model.NotificationEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return true
}

// Events returns a snapshot of dispatched events.
func (s *NotifierStub) Events() []model.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationEvent(nil), s.events...)
}

// Types lists dispatched event types in order.
func (s *NotifierStub) Types() []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// InlineRunner runs tasks synchronously and records their names and errors.
type InlineRunner struct {
	mu     sync.Mutex
	Names  []string
	Errors map[string]error
	// Reject makes Go refuse every task, as a full queue would.
	Reject bool
}

// Go runs fn immediately unless Reject is set.
func (r *InlineRunner) Go(name string, fn func(ctx context.Context) error) bool {
	if r.Reject {
		return false
	}
	err := fn(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Names = append(r.Names, name)
	if err != nil {
		if r.Errors == nil {
			r.Errors = map[string]error{}
		}
		r.Errors[name] = err
	}
	return true
}

// Ran reports whether a task with the name was executed.
func (r *InlineRunner) Ran(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.Names {
		if n == name {
			return true
		}
	}
	return false
}

// ReceiptPublisherStub records published print jobs.
type ReceiptPublisherStub struct {
	mu   sync.Mutex
	Jobs []model.PrintJob
	Err  error
}

// PublishReceipt records the job.
func (s *ReceiptPublisherStub) PublishReceipt(ctx context.Context, job model.PrintJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, job)
	return s.Err
}
