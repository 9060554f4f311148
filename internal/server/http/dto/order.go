package dto

import (
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// UpdateStatusRequest describes a restaurant status change.
type UpdateStatusRequest struct {
	Status          string  `json:"status"`
	Reason          *string `json:"reason,omitempty"`
	PreparationTime *int    `json:"preparationTime,omitempty"`
}

// CompleteDeliveryRequest carries the customer handoff code.
type CompleteDeliveryRequest struct {
	SecurityCode string `json:"securityCode"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	ID               string     `json:"id"`
	RestaurantID     string     `json:"restaurantId"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"paymentStatus"`
	ReadyForDelivery bool       `json:"readyForDelivery"`
	PreparationTime  *int       `json:"preparationTime,omitempty"`
	RejectionReason  *string    `json:"rejectionReason,omitempty"`
	TotalPaid        string     `json:"totalPaid"`
	CourierID        *string    `json:"courierId,omitempty"`
	PreparationStart *time.Time `json:"preparationStartedAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// OrderStatusResponse wraps an updated order.
type OrderStatusResponse struct {
	Success bool          `json:"success"`
	Order   OrderResponse `json:"order"`
}

// NewOrderResponse maps an order to its public view.
func NewOrderResponse(o *model.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		RestaurantID:     o.RestaurantID,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		ReadyForDelivery: o.ReadyForDelivery,
		PreparationTime:  o.PreparationTime,
		RejectionReason:  o.RejectionReason,
		TotalPaid:        o.TotalPaid.StringFixed(2),
		CourierID:        o.CourierID,
		PreparationStart: o.PreparationStartedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
