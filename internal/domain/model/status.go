package model

import "strings"

// RequestedStatus is a business status asked for by a restaurant, admin or courier.
type RequestedStatus string

const (
	RequestedAccepted         RequestedStatus = "accepted"
	RequestedRejected         RequestedStatus = "rejected"
	RequestedReadyForDelivery RequestedStatus = "ready_for_delivery"
	RequestedDelivered        RequestedStatus = "delivered"
)

// Transition is the persisted effect of a requested status.
type Transition struct {
	Target           OrderStatus
	MarkReady        bool
	StampPreparation bool
	// AllowedWhenClaimed marks requests still accepted after a courier claimed the order.
	AllowedWhenClaimed bool
	from               []OrderStatus
}

// AllowedFrom reports whether the transition may leave the given persisted status.
func (t Transition) AllowedFrom(current OrderStatus) bool {
	for _, s := range t.from {
		if s == current {
			return true
		}
	}
	return false
}

var transitions = map[RequestedStatus]Transition{
	RequestedAccepted: {
		Target:           OrderStatusPreparing,
		StampPreparation: true,
		from:             []OrderStatus{OrderStatusPending, OrderStatusPreparing},
	},
	RequestedRejected: {
		Target: OrderStatusCancelled,
		from:   []OrderStatus{OrderStatusPending, OrderStatusPreparing},
	},
	RequestedReadyForDelivery: {
		Target:             OrderStatusPreparing,
		MarkReady:          true,
		AllowedWhenClaimed: true,
		from:               []OrderStatus{OrderStatusPending, OrderStatusPreparing},
	},
	RequestedDelivered: {
		Target:             OrderStatusDelivered,
		AllowedWhenClaimed: true,
		from:               []OrderStatus{OrderStatusPreparing, OrderStatusOutForDelivery},
	},
}

// ParseRequestedStatus accepts only the known business statuses.
func ParseRequestedStatus(raw string) (RequestedStatus, bool) {
	s := RequestedStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok {
		return "", false
	}
	return s, true
}

// TransitionFor returns the mapping of a parsed requested status.
func TransitionFor(s RequestedStatus) (Transition, bool) {
	t, ok := transitions[s]
	return t, ok
}

// CanTransition reports whether the requested status may be applied to the current one.
func CanTransition(current OrderStatus, requested RequestedStatus) bool {
	t, ok := transitions[requested]
	if !ok {
		return false
	}
	return t.AllowedFrom(current)
}
