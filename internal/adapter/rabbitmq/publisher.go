// Package rabbitmq queues receipt print jobs on a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// ErrNacked is returned when the broker refuses a publish.
var ErrNacked = errors.New("publish nacked by broker")

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ReceiptPublisher publishes print jobs with publisher confirms.
type ReceiptPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	acks     <-chan amqp.Confirmation
	mu       sync.Mutex
	now      func() time.Time
}

// Dial connects to url and declares the durable receipts exchange.
func Dial(url, exchange string) (*ReceiptPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p, err := newReceiptPublisher(ch, exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newReceiptPublisher(ch amqpChannel, exchange string) (*ReceiptPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &ReceiptPublisher{ch: ch, exchange: exchange, acks: acks, now: time.Now}, nil
}

// RoutingKey addresses the printers of one restaurant.
func RoutingKey(restaurantID string) string {
	return "restaurant." + restaurantID
}

// PublishReceipt sends job and waits for the broker ack.
func (p *ReceiptPublisher) PublishReceipt(ctx context.Context, job model.PrintJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(job.RestaurantID), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    job.OrderID,
		Timestamp:    p.now(),
		Headers:      amqp.Table{"template": job.Template, "format": job.Format},
		Body:         body,
	}); err != nil {
		return err
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return amqp.ErrClosed
		}
		if conf.Ack {
			return nil
		}
		return ErrNacked
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the channel and connection.
func (p *ReceiptPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
