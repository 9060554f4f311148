package notify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/polkiloo/orderflow/internal/adapter/email"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

func TestCustomerStatusCopy(t *testing.T) {
	order, rest := fixtures()

	cases := []struct {
		status   model.RequestedStatus
		title    string
		template string
		email    bool
	}{
		{model.RequestedAccepted, "Order accepted", email.TemplateOrderAccepted, true},
		{model.RequestedRejected, "Order cancelled", email.TemplateOrderRejected, true},
		{model.RequestedReadyForDelivery, "Order ready", "", false},
		{model.RequestedDelivered, "Order delivered", email.TemplateOrderDelivered, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			ev := CustomerStatus(order, rest, tc.status, at)
			assert.Equal(t, model.EventOrderStatusUpdate, ev.Type)
			assert.Equal(t, tc.title, ev.Title)
			assert.Equal(t, tc.template, ev.Template)
			assert.Equal(t, tc.email, ev.Channels.Has(model.ChannelEmail))
			assert.True(t, ev.Channels.Has(model.ChannelPush))
			assert.Equal(t, model.Target{Kind: model.TargetUser, ID: "c-1"}, ev.Target)
		})
	}

	assert.Equal(t, "Your order is being prepared", CustomerStatus(order, rest, model.RequestedAccepted, at).Body)
	assert.Equal(t, "20", CustomerStatus(order, rest, model.RequestedAccepted, at).Data["preparation_time"])
	assert.Equal(t, "The restaurant could not take your order: Closed early", CustomerStatus(order, rest, model.RequestedRejected, at).Body)
}

func TestRestaurantEvents(t *testing.T) {
	order, rest := fixtures()
	target := model.Target{Kind: model.TargetRestaurant, ID: "r-1", UserID: "owner-1"}

	ev := NewOrder(order, rest, at)
	assert.Equal(t, target, ev.Target)
	assert.True(t, ev.Channels.Has(model.ChannelLive))

	dash := DashboardStatus(order, rest, at)
	assert.Equal(t, model.ChannelLive, dash.Channels)
	assert.Equal(t, "preparing", dash.Data["status"])

	job := model.PrintJob{RestaurantID: "r-1", OrderID: order.ID, Template: "receipt_v1", Format: "dantsu_escpos_markup", Text: "[C]X"}
	receipt := PrintReceipt(job, rest, at)
	assert.Equal(t, model.EventPrintReceipt, receipt.Type)
	assert.Equal(t, "[C]X", receipt.Data["text"])
	assert.Equal(t, model.ChannelLive, receipt.Channels)

	avail := OrderAvailable(order, rest, at)
	assert.Equal(t, model.TargetCouriers, avail.Target.Kind)
	assert.Equal(t, "Chez Paul · delivery fee 4.11 €", avail.Body)
}

func TestRefundedEvent(t *testing.T) {
	order, _ := fixtures()
	ev := Refunded(order, model.Refund{ID: "re_1", Amount: decimal.RequireFromString("18")}, "", at)
	assert.Equal(t, model.EventOrderRefunded, ev.Type)
	assert.Equal(t, "18.00", ev.Data["amount"])
	assert.Equal(t, email.TemplateOrderRefunded, ev.Template)
	assert.Equal(t, "18.00 € will be returned to your payment method", ev.Body)
	_, hasReason := ev.Data["reason"]
	assert.False(t, hasReason)

	ev = Refunded(order, model.Refund{ID: "re_1", Amount: decimal.RequireFromString("18")}, "  Closed early ", at)
	assert.Equal(t, "Closed early", ev.Data["reason"])
	assert.Equal(t, "18.00 € will be returned to your payment method. Reason: Closed early", ev.Body)
}
