package model

import "time"

// EventType tags a notification event.
type EventType string

const (
	EventNewOrder          EventType = "new_order"
	EventOrderAvailable    EventType = "order_available"
	EventOrderStatusUpdate EventType = "order_status_update"
	EventOrderRefunded     EventType = "order_refunded"
	EventPrintReceipt      EventType = "print_receipt"
	EventConnected         EventType = "connected"
)

// TargetKind selects who receives an event.
type TargetKind string

const (
	TargetRestaurant TargetKind = "restaurant"
	TargetUser       TargetKind = "user"
	TargetCouriers   TargetKind = "couriers"
)

// Target addresses an event. For restaurants ID is the restaurant and UserID its owner.
type Target struct {
	Kind   TargetKind
	ID     string
	UserID string
}

// Channels is a set of delivery channels.
type Channels uint8

const (
	ChannelPush Channels = 1 << iota
	ChannelLive
	ChannelEmail
)

// Has reports whether c includes ch.
func (c Channels) Has(ch Channels) bool {
	return c&ch != 0
}

// NotificationEvent is an ephemeral message fanned out to the notification channels.
type NotificationEvent struct {
	Type      EventType         `json:"type"`
	OrderID   string            `json:"orderId,omitempty"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"message,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"timestamp"`

	Target   Target   `json:"-"`
	Channels Channels `json:"-"`
	// Template names the email template; empty means no email.
	Template string `json:"-"`
}

// PrintJob is a receipt queued to a restaurant printer.
type PrintJob struct {
	RestaurantID string `json:"restaurant_id"`
	OrderID      string `json:"order_id"`
	Template     string `json:"template"`
	Format       string `json:"format"`
	Text         string `json:"text"`
}
