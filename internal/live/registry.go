// Package live keeps the open dashboard streams of this process, keyed by restaurant.
//
// The registry is process-local. Running several instances requires an external
// pub/sub layer in front of it; dashboards connected to another instance miss events.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Conn is one open dashboard stream.
type Conn interface {
	Send(frame []byte) error
	Close()
}

// Registry maps restaurant ids to their open streams.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]map[Conn]struct{}
	logger  *slog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]map[Conn]struct{}),
		logger:  logger,
	}
}

// Add registers conn for restaurantID. The returned func removes it and is safe to call twice.
func (r *Registry) Add(restaurantID string, conn Conn) func() {
	r.mu.Lock()
	set, ok := r.clients[restaurantID]
	if !ok {
		set = make(map[Conn]struct{})
		r.clients[restaurantID] = set
	}
	set[conn] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(restaurantID, conn) })
	}
}

// Broadcast writes event to every stream of restaurantID. A stream that fails the write
// is dropped. It reports whether at least one stream received the event.
func (r *Registry) Broadcast(restaurantID string, event model.NotificationEvent) bool {
	r.mu.RLock()
	set := r.clients[restaurantID]
	conns := make([]Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	if len(conns) == 0 {
		return false
	}

	frame, err := Frame(event)
	if err != nil {
		r.logger.Error("encode live event failed", slog.String("restaurant_id", restaurantID), slog.String("error", err.Error()))
		return false
	}

	delivered := false
	for _, c := range conns {
		if err := c.Send(frame); err != nil {
			r.logger.Warn("live stream write failed, dropping connection",
				slog.String("restaurant_id", restaurantID),
				slog.String("error", err.Error()))
			r.remove(restaurantID, c)
			continue
		}
		delivered = true
	}
	return delivered
}

// ClientCount returns the number of open streams for restaurantID.
func (r *Registry) ClientCount(restaurantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients[restaurantID])
}

func (r *Registry) remove(restaurantID string, conn Conn) {
	r.mu.Lock()
	set, ok := r.clients[restaurantID]
	if ok {
		if _, present := set[conn]; present {
			delete(set, conn)
			conn.Close()
		}
		if len(set) == 0 {
			delete(r.clients, restaurantID)
		}
	}
	r.mu.Unlock()
}

// Frame encodes event as one server-sent events data frame.
func Frame(event model.NotificationEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}
