package model

import (
	"encoding/json"
	"time"
)

// OutboxStatus is the relay state of an outbox row.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxSent       OutboxStatus = "sent"
	OutboxFailed     OutboxStatus = "failed"
)

// Outbox event types published to the order event stream.
const (
	OutboxOrderPaid          = "order.paid"
	OutboxOrderStatusChanged = "order.status_changed"
	OutboxOrderRefunded      = "order.refunded"
)

// OutboxEvent is a state change persisted with the write that caused it.
type OutboxEvent struct {
	ID          string
	AggregateID string
	Type        string
	Payload     json.RawMessage
	Status      OutboxStatus
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
}
