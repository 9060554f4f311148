package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/orderflow/internal/adapter/email"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

func restaurantTarget(r *model.Restaurant) model.Target {
	return model.Target{Kind: model.TargetRestaurant, ID: r.ID, UserID: r.OwnerUserID}
}

func customerTarget(o *model.Order) model.Target {
	return model.Target{Kind: model.TargetUser, ID: o.CustomerID}
}

// NewOrder tells the restaurant a paid order arrived.
func NewOrder(o *model.Order, r *model.Restaurant, at time.Time) model.NotificationEvent {
	return model.NotificationEvent{
		Type:      model.EventNewOrder,
		OrderID:   o.ID,
		Title:     "New order",
		Body:      fmt.Sprintf("Order #%s · %s €", o.ShortID(), o.TotalPaid.StringFixed(2)),
		Data:      map[string]string{"total": o.TotalPaid.StringFixed(2), "status": string(o.Status)},
		CreatedAt: at,
		Target:    restaurantTarget(r),
		Channels:  model.ChannelPush | model.ChannelLive,
	}
}

// OrderAvailable offers a paid order to every courier.
func OrderAvailable(o *model.Order, r *model.Restaurant, at time.Time) model.NotificationEvent {
	return model.NotificationEvent{
		Type:      model.EventOrderAvailable,
		OrderID:   o.ID,
		Title:     "New delivery available",
		Body:      fmt.Sprintf("%s · delivery fee %s €", r.Name, o.DeliveryFee.StringFixed(2)),
		Data:      map[string]string{"restaurantId": r.ID},
		CreatedAt: at,
		Target:    model.Target{Kind: model.TargetCouriers},
		Channels:  model.ChannelPush,
	}
}

// PrintReceipt mirrors a queued print job to the restaurant dashboard.
func PrintReceipt(job model.PrintJob, r *model.Restaurant, at time.Time) model.NotificationEvent {
	return model.NotificationEvent{
		Type:    model.EventPrintReceipt,
		OrderID: job.OrderID,
		Title:   "Print receipt",
		Data: map[string]string{
			"template": job.Template,
			"format":   job.Format,
			"text":     job.Text,
		},
		CreatedAt: at,
		Target:    restaurantTarget(r),
		Channels:  model.ChannelLive,
	}
}

type statusCopy struct {
	title    string
	body     string
	template string
}

var customerCopy = map[model.RequestedStatus]statusCopy{
	model.RequestedAccepted:         {"Order accepted", "Your order is being prepared", email.TemplateOrderAccepted},
	model.RequestedRejected:         {"Order cancelled", "The restaurant could not take your order", email.TemplateOrderRejected},
	model.RequestedReadyForDelivery: {"Order ready", "Your order is ready and waiting for a courier", ""},
	model.RequestedDelivered:        {"Order delivered", "Enjoy your meal!", email.TemplateOrderDelivered},
}

// CustomerStatus tells the customer about a status change.
func CustomerStatus(o *model.Order, r *model.Restaurant, requested model.RequestedStatus, at time.Time) model.NotificationEvent {
	c := customerCopy[requested]
	body := c.body
	data := map[string]string{
		"status":     string(requested),
		"short_id":   o.ShortID(),
		"restaurant": r.Name,
	}
	if requested == model.RequestedRejected && o.RejectionReason != nil && *o.RejectionReason != "" {
		body = fmt.Sprintf("%s: %s", body, *o.RejectionReason)
		data["reason"] = *o.RejectionReason
	}
	if requested == model.RequestedAccepted && o.PreparationTime != nil {
		data["preparation_time"] = strconv.Itoa(*o.PreparationTime)
	}

	channels := model.ChannelPush
	if c.template != "" {
		channels |= model.ChannelEmail
	}
	return model.NotificationEvent{
		Type:      model.EventOrderStatusUpdate,
		OrderID:   o.ID,
		Title:     c.title,
		Body:      body,
		Data:      data,
		CreatedAt: at,
		Target:    customerTarget(o),
		Channels:  channels,
		Template:  c.template,
	}
}

// DashboardStatus refreshes the order on the restaurant dashboard.
func DashboardStatus(o *model.Order, r *model.Restaurant, at time.Time) model.NotificationEvent {
	return model.NotificationEvent{
		Type:    model.EventOrderStatusUpdate,
		OrderID: o.ID,
		Data: map[string]string{
			"status":           string(o.Status),
			"readyForDelivery": strconv.FormatBool(o.ReadyForDelivery),
		},
		CreatedAt: at,
		Target:    restaurantTarget(r),
		Channels:  model.ChannelLive,
	}
}

// Refunded tells the customer the refund went through and why the order was cancelled.
func Refunded(o *model.Order, refund model.Refund, reason string, at time.Time) model.NotificationEvent {
	amount := refund.Amount.StringFixed(2)
	body := fmt.Sprintf("%s € will be returned to your payment method", amount)
	data := map[string]string{"amount": amount, "short_id": o.ShortID()}
	if reason = strings.TrimSpace(reason); reason != "" {
		body += ". Reason: " + reason
		data["reason"] = reason
	}
	return model.NotificationEvent{
		Type:      model.EventOrderRefunded,
		OrderID:   o.ID,
		Title:     "Refund issued",
		Body:      body,
		Data:      data,
		CreatedAt: at,
		Target:    customerTarget(o),
		Channels:  model.ChannelPush | model.ChannelEmail,
		Template:  email.TemplateOrderRefunded,
	}
}
