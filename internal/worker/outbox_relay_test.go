package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
)

type publisherStub struct {
	mu        sync.Mutex
	published []string
	failIDs   map[string]bool
}

func (p *publisherStub) Publish(ctx context.Context, event model.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[event.ID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.ID)
	return nil
}

func TestNewOutboxRelayDefaults(t *testing.T) {
	relay := NewOutboxRelay(&testhelpers.OutboxRepositoryStub{}, &publisherStub{}, time.Second, 0, 0, 0, discardLogger())
	if relay.batchSize != 1 || relay.workers != 1 || relay.maxAttempts != 1 {
		t.Fatalf("unexpected defaults: batch=%d workers=%d attempts=%d", relay.batchSize, relay.workers, relay.maxAttempts)
	}
	if relay.lease != defaultLease {
		t.Fatalf("unexpected lease %v", relay.lease)
	}
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	store := &testhelpers.OutboxRepositoryStub{Batches: [][]model.OutboxEvent{{
		{ID: "e-1", AggregateID: "o-1", Type: model.OutboxOrderPaid},
		{ID: "e-2", AggregateID: "o-2", Type: model.OutboxOrderRefunded},
	}}}
	publisher := &publisherStub{failIDs: map[string]bool{"e-2": true}}
	relay := NewOutboxRelay(store, publisher, 5*time.Millisecond, 4, 2, 3, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.Start(ctx)

	deadline := time.After(time.Second)
	for {
		sent, failed := store.Outcome()
		if len(sent) == 1 && len(failed) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for relay, sent=%v failed=%v", sent, failed)
		case <-time.After(5 * time.Millisecond):
		}
	}
	relay.Stop()

	sent, failed := store.Outcome()
	if sent[0] != "e-1" {
		t.Fatalf("expected e-1 sent, got %v", sent)
	}
	if failed["e-2"] != "broker unavailable" {
		t.Fatalf("expected e-2 failure recorded, got %v", failed)
	}
}

func TestOutboxRelaySurvivesClaimErrors(t *testing.T) {
	store := &testhelpers.OutboxRepositoryStub{ClaimErr: errors.New("db down")}
	relay := NewOutboxRelay(store, &publisherStub{}, 5*time.Millisecond, 1, 1, 1, discardLogger())

	relay.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	relay.Stop()

	sent, failed := store.Outcome()
	if len(sent) != 0 || len(failed) != 0 {
		t.Fatalf("expected nothing relayed, got %v %v", sent, failed)
	}
}
