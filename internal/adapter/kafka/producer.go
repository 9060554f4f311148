// Package kafka publishes outbox events to the order event topic.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes outbox events keyed by order so one order's events stay ordered.
type Producer struct {
	writer messageWriter
}

// NewProducer constructs a producer for topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// Publish writes event with its payload as the message value.
func (p *Producer) Publish(ctx context.Context, event model.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
