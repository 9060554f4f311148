package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/orderflow/internal/adapter/email"
	"github.com/polkiloo/orderflow/internal/adapter/push"
	"github.com/polkiloo/orderflow/internal/domain/model"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
	"github.com/polkiloo/orderflow/internal/worker"
)

var at = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type pushStub struct {
	mu   sync.Mutex
	sent []model.DeviceToken
	msgs []push.Message
	fail map[string]error
}

func (p *pushStub) Send(ctx context.Context, token model.DeviceToken, msg push.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[token.Token]; err != nil {
		return err
	}
	p.sent = append(p.sent, token)
	p.msgs = append(p.msgs, msg)
	return nil
}

type liveStub struct {
	restaurants []string
	result      bool
}

func (l *liveStub) Broadcast(restaurantID string, event model.NotificationEvent) bool {
	l.restaurants = append(l.restaurants, restaurantID)
	return l.result
}

type emailStub struct {
	to       string
	template string
	vars     map[string]string
	err      error
}

func (e *emailStub) Send(ctx context.Context, to, template string, vars map[string]string) error {
	e.to, e.template, e.vars = to, template, vars
	return e.err
}

type runnerStub struct {
	accept bool
	tasks  []worker.Task
}

func (r *runnerStub) Go(name string, fn worker.Task) bool {
	if !r.accept {
		return false
	}
	r.tasks = append(r.tasks, fn)
	return true
}

func fixtures() (*model.Order, *model.Restaurant) {
	reason := "Closed early"
	minutes := 20
	order := &model.Order{
		ID:              "0123456789abcdef",
		RestaurantID:    "r-1",
		CustomerID:      "c-1",
		Status:          model.OrderStatusPreparing,
		TotalPaid:       decimal.RequireFromString("25.00"),
		DeliveryFee:     decimal.RequireFromString("4.11"),
		RejectionReason: &reason,
		PreparationTime: &minutes,
	}
	return order, &model.Restaurant{ID: "r-1", OwnerUserID: "owner-1", Name: "Chez Paul"}
}

func newTestFanout(tokens *testhelpers.DeviceTokenRepositoryStub, p *pushStub, l *liveStub, e *emailStub, r *runnerStub) *Fanout {
	users := &testhelpers.UserRepositoryStub{Users: map[string]*model.User{
		"c-1": {ID: "c-1", Email: "ana@example.com", FirstName: "Ana", Role: model.RoleCustomer},
	}}
	ch := Channels{}
	if p != nil {
		ch.Push = p
	}
	if l != nil {
		ch.Live = l
	}
	if e != nil {
		ch.Email = e
	}
	if r == nil {
		r = &runnerStub{accept: true}
	}
	return NewFanout(tokens, users, ch, r, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestDeliverRestaurantEvent(t *testing.T) {
	tokens := &testhelpers.DeviceTokenRepositoryStub{Tokens: []model.DeviceToken{
		{UserID: "owner-1", Token: "ios-1", Platform: model.PlatformIOS},
		{UserID: "owner-1", Token: "android-1", Platform: model.PlatformAndroid},
		{UserID: "someone-else", Token: "ios-2", Platform: model.PlatformIOS},
	}}
	p := &pushStub{}
	l := &liveStub{result: true}
	order, rest := fixtures()

	report := newTestFanout(tokens, p, l, &emailStub{}, nil).Deliver(context.Background(), NewOrder(order, rest, at))

	assert.Equal(t, DeliveryReport{Sent: 2, Total: 2, Live: true}, report)
	assert.Equal(t, []string{"r-1"}, l.restaurants)
	require.Len(t, p.msgs, 2)
	assert.Equal(t, model.PlatformIOS, p.sent[0].Platform, "ios bucket goes first")
	assert.Equal(t, "new_order", p.msgs[0].Data["type"])
	assert.Equal(t, order.ID, p.msgs[0].Data["orderId"])
	assert.Equal(t, "Order #01234567 · 25.00 €", p.msgs[0].Body)
}

func TestDeliverIsolatesTokenFailures(t *testing.T) {
	tokens := &testhelpers.DeviceTokenRepositoryStub{
		Tokens: []model.DeviceToken{
			{UserID: "k-1", Token: "bad", Platform: model.PlatformAndroid},
			{UserID: "k-2", Token: "good", Platform: model.PlatformAndroid},
			{UserID: "k-3", Token: "web", Platform: model.Platform("web")},
		},
		Roles: map[string]model.Role{"k-1": model.RoleCourier, "k-2": model.RoleCourier, "k-3": model.RoleCourier},
	}
	p := &pushStub{fail: map[string]error{"bad": push.RejectedError{Reason: "UNREGISTERED"}}}
	order, rest := fixtures()

	report := newTestFanout(tokens, p, nil, nil, nil).Deliver(context.Background(), OrderAvailable(order, rest, at))

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "k-1", report.Errors[0].UserID)
	assert.Contains(t, report.Errors[0].Err, "UNREGISTERED")
	assert.Equal(t, "unsupported platform", report.Errors[1].Err)
	assert.False(t, report.Live)
}

func TestDeliverTokenLookupFailure(t *testing.T) {
	tokens := &testhelpers.DeviceTokenRepositoryStub{Err: errors.New("db down")}
	order, rest := fixtures()
	l := &liveStub{result: true}

	report := newTestFanout(tokens, &pushStub{}, l, nil, nil).Deliver(context.Background(), NewOrder(order, rest, at))
	assert.Equal(t, 0, report.Total)
	assert.True(t, report.Live, "live channel still delivered")
}

func TestDeliverCustomerEmail(t *testing.T) {
	tokens := &testhelpers.DeviceTokenRepositoryStub{Tokens: []model.DeviceToken{{UserID: "c-1", Token: "t", Platform: model.PlatformIOS}}}
	e := &emailStub{}
	l := &liveStub{result: true}
	order, rest := fixtures()

	report := newTestFanout(tokens, &pushStub{}, l, e, nil).Deliver(context.Background(), CustomerStatus(order, rest, model.RequestedRejected, at))

	assert.True(t, report.Emailed)
	assert.Equal(t, 1, report.Sent)
	assert.False(t, report.Live, "customer events never reach dashboards")
	assert.Empty(t, l.restaurants)
	assert.Equal(t, "ana@example.com", e.to)
	assert.Equal(t, email.TemplateOrderRejected, e.template)
	assert.Equal(t, "Ana", e.vars["first_name"])
	assert.Equal(t, "Closed early", e.vars["reason"])
	assert.Equal(t, "01234567", e.vars["short_id"])
}

func TestDeliverEmailFailuresAreContained(t *testing.T) {
	order, _ := fixtures()
	e := &emailStub{err: errors.New("relay down")}
	report := newTestFanout(&testhelpers.DeviceTokenRepositoryStub{}, nil, nil, e, nil).Deliver(context.Background(), Refunded(order, model.Refund{Amount: decimal.RequireFromString("18")}, "", at))
	assert.False(t, report.Emailed)

	order.CustomerID = "unknown"
	report = newTestFanout(&testhelpers.DeviceTokenRepositoryStub{}, nil, nil, &emailStub{}, nil).Deliver(context.Background(), Refunded(order, model.Refund{}, "", at))
	assert.False(t, report.Emailed)
}

func TestDispatchQueuesDelivery(t *testing.T) {
	l := &liveStub{result: true}
	r := &runnerStub{accept: true}
	order, rest := fixtures()
	f := newTestFanout(&testhelpers.DeviceTokenRepositoryStub{}, nil, l, nil, r)

	require.True(t, f.Dispatch(DashboardStatus(order, rest, at)))
	assert.Empty(t, l.restaurants, "delivery is deferred")
	require.Len(t, r.tasks, 1)
	require.NoError(t, r.tasks[0](context.Background()))
	assert.Equal(t, []string{"r-1"}, l.restaurants)

	assert.False(t, newTestFanout(&testhelpers.DeviceTokenRepositoryStub{}, nil, l, nil, &runnerStub{}).Dispatch(DashboardStatus(order, rest, at)))
}

func TestDispatchWithRealDispatcher(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	d := worker.NewDispatcher(1, 4, time.Second, logger)
	d.Start(context.Background())

	l := &liveStub{result: true}
	order, rest := fixtures()
	f := NewFanout(&testhelpers.DeviceTokenRepositoryStub{}, &testhelpers.UserRepositoryStub{}, Channels{Live: l}, d, logger)
	require.True(t, f.Dispatch(DashboardStatus(order, rest, at)))
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, []string{"r-1"}, l.restaurants)
}
