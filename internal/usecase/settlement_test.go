package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
)

var fixedNow = time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type settlementFixture struct {
	uc        *SettlementUseCase
	orders    *testhelpers.OrderRepositoryStub
	loyalty   *testhelpers.LoyaltyRepositoryStub
	processor *testhelpers.ProcessorStub
	notifier  *testhelpers.NotifierStub
	runner    *testhelpers.InlineRunner
	receipts  *testhelpers.ReceiptPublisherStub

	restaurants *testhelpers.RestaurantRepositoryStub
}

func newSettlementFixture(order *model.Order, payment *model.Payment) *settlementFixture {
	f := &settlementFixture{
		orders:    testhelpers.NewOrderRepositoryStub(order),
		loyalty:   &testhelpers.LoyaltyRepositoryStub{},
		processor: &testhelpers.ProcessorStub{Payments: map[string]*model.Payment{}},
		notifier:  &testhelpers.NotifierStub{},
		runner:    &testhelpers.InlineRunner{},
		receipts:  &testhelpers.ReceiptPublisherStub{},
	}
	if payment != nil {
		f.processor.Payments[payment.ID] = payment
	}
	f.orders.Items[order.ID] = []model.LineItem{{OrderID: order.ID, Name: "Burger", Quantity: 2, UnitPrice: dec("10.00")}}
	f.restaurants = &testhelpers.RestaurantRepositoryStub{Restaurants: map[string]*model.Restaurant{
		"r-1": {ID: "r-1", OwnerUserID: "owner-1", Name: "Chez Paul"},
	}}
	refunds := NewRefundUseCase(f.orders, f.processor, f.notifier, discardLogger())
	refunds.clock = func() time.Time { return fixedNow }
	f.uc = NewSettlementUseCase(SettlementDeps{
		Orders:         f.orders,
		Restaurants:    f.restaurants,
		Loyalty:        f.loyalty,
		Processor:      f.processor,
		Notifier:       f.notifier,
		Runner:         f.runner,
		Receipts:       f.receipts,
		Refunds:        refunds,
		InternalBrands: []string{"cvneat"},
		Logger:         discardLogger(),
	})
	f.uc.clock = func() time.Time { return fixedNow }
	return f
}

func unpaidOrder() *model.Order {
	return &model.Order{
		ID:            "order-12345678",
		RestaurantID:  "r-1",
		CustomerID:    "c-1",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusUnpaid,
		Subtotal:      dec("20.00"),
		Discount:      decimal.Zero,
	}
}

func succeededPayment() *model.Payment {
	return &model.Payment{
		ID:      "pi_1",
		Status:  model.PaymentSucceeded,
		Amount:  dec("25.49"),
		OrderID: "order-12345678",
		Fees:    &model.ProcessorFees{Fee: dec("0.62"), Net: dec("24.87")},
	}
}

func TestConfirmFirstSettlement(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())

	res, err := f.uc.Confirm(context.Background(), " pi_1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "order-12345678" || res.AlreadyPaid {
		t.Fatalf("unexpected result %+v", res)
	}

	o := f.orders.Order("order-12345678")
	if !o.IsPaid() || *o.PaymentIntentID != "pi_1" {
		t.Fatalf("expected paid order linked to intent, got %+v", o)
	}
	checks := map[string][2]decimal.Decimal{
		"total paid":          {o.TotalPaid, dec("25.49")},
		"delivery fee":        {o.DeliveryFee, dec("5.00")},
		"delivery commission": {o.DeliveryCommission, dec("0.50")},
		"platform fee":        {o.PlatformFee, dec("0.49")},
		"commission":          {o.CommissionAmount, dec("4.00")},
		"payout":              {o.RestaurantPayout, dec("16.00")},
	}
	for name, c := range checks {
		if !c[0].Equal(c[1]) {
			t.Errorf("%s: got %s want %s", name, c[0], c[1])
		}
	}

	if fees := f.orders.Fees["order-12345678"]; !fees.Fee.Equal(dec("0.62")) {
		t.Fatalf("expected processor fees stored, got %+v", fees)
	}
	credit, ok := f.loyalty.Credited("order-12345678")
	if !ok || credit.Points != 20 || credit.CustomerID != "c-1" {
		t.Fatalf("expected 20 loyalty points, got %+v %v", credit, ok)
	}
	if len(f.receipts.Jobs) != 1 || f.receipts.Jobs[0].RestaurantID != "r-1" {
		t.Fatalf("expected one receipt job, got %+v", f.receipts.Jobs)
	}

	want := []model.EventType{model.EventPrintReceipt, model.EventNewOrder, model.EventOrderAvailable}
	got := f.notifier.Types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}

	events := f.orders.RecordedEvents()
	if len(events) != 1 || events[0].Type != model.OutboxOrderPaid || events[0].AggregateID != "order-12345678" {
		t.Fatalf("expected one order.paid outbox event, got %+v", events)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())

	if _, err := f.uc.Confirm(context.Background(), "pi_1"); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if !res.AlreadyPaid {
		t.Fatal("expected second confirm to report already paid")
	}
	if n := len(f.notifier.Events()); n != 3 {
		t.Fatalf("expected side effects only once, got %d events", n)
	}
	if n := len(f.receipts.Jobs); n != 1 {
		t.Fatalf("expected a single receipt, got %d", n)
	}
	if n := len(f.orders.RecordedEvents()); n != 1 {
		t.Fatalf("expected a single outbox event, got %d", n)
	}
}

func TestConfirmConcurrentCallsSettleOnce(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())

	var wg sync.WaitGroup
	results := make([]*ConfirmResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.uc.Confirm(context.Background(), "pi_1")
			if err != nil {
				t.Errorf("confirm %d failed: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	first := 0
	for _, r := range results {
		if r != nil && !r.AlreadyPaid {
			first++
		}
	}
	if first != 1 {
		t.Fatalf("expected exactly one first settlement, got %d", first)
	}
	if n := len(f.orders.RecordedEvents()); n != 1 {
		t.Fatalf("expected a single outbox event, got %d", n)
	}
}

func TestConfirmLostRaceHasNoSideEffects(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())
	f.orders.BeforeWrite = func(o *model.Order) {
		o.PaymentStatus = model.PaymentStatusPaid
	}

	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AlreadyPaid {
		t.Fatal("expected lost race to report already paid")
	}
	if len(f.notifier.Events()) != 0 || len(f.runner.Names) != 0 {
		t.Fatalf("expected no side effects, got %v %v", f.notifier.Types(), f.runner.Names)
	}
}

func TestConfirmAlreadyPaidRefreshesFiguresSilently(t *testing.T) {
	order := unpaidOrder()
	order.PaymentStatus = model.PaymentStatusPaid
	intent := "pi_1"
	order.PaymentIntentID = &intent
	f := newSettlementFixture(order, succeededPayment())

	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil || !res.AlreadyPaid {
		t.Fatalf("expected already paid success, got %+v %v", res, err)
	}
	if o := f.orders.Order(order.ID); !o.RestaurantPayout.Equal(dec("16.00")) {
		t.Fatalf("expected figures recomputed, got payout %s", o.RestaurantPayout)
	}
	if len(f.notifier.Events()) != 0 || len(f.orders.RecordedEvents()) != 0 {
		t.Fatal("expected no notifications or outbox events for a paid order")
	}
	if _, ok := f.loyalty.Credited(order.ID); ok {
		t.Fatal("expected no loyalty credit for a paid order")
	}
}

func TestConfirmRefundedOrderIsNoop(t *testing.T) {
	order := unpaidOrder()
	order.PaymentStatus = model.PaymentStatusRefunded
	f := newSettlementFixture(order, succeededPayment())

	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil || !res.AlreadyPaid {
		t.Fatalf("expected no-op success, got %+v %v", res, err)
	}
	if f.orders.MarkPaidCalls != 0 {
		t.Fatal("expected no write for refunded order")
	}
	if o := f.orders.Order(order.ID); o.PaymentStatus != model.PaymentStatusRefunded {
		t.Fatalf("expected order to stay refunded, got %s", o.PaymentStatus)
	}
}

func TestConfirmInternalRestaurantPaysNoCommission(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())
	f.uc.restaurants = &testhelpers.RestaurantRepositoryStub{Restaurants: map[string]*model.Restaurant{
		"r-1": {ID: "r-1", Name: "CVN'EAT"},
	}}

	if _, err := f.uc.Confirm(context.Background(), "pi_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := f.orders.Order("order-12345678")
	if !o.CommissionAmount.IsZero() || !o.RestaurantPayout.Equal(dec("20.00")) {
		t.Fatalf("expected zero commission, got %s / %s", o.CommissionAmount, o.RestaurantPayout)
	}
}

func TestConfirmMissingRestaurantUsesDefaultRate(t *testing.T) {
	f := newSettlementFixture(unpaidOrder(), succeededPayment())
	f.uc.restaurants = &testhelpers.RestaurantRepositoryStub{}

	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil || res.AlreadyPaid {
		t.Fatalf("expected settlement, got %+v %v", res, err)
	}
	if o := f.orders.Order("order-12345678"); !o.CommissionAmount.Equal(dec("4.00")) {
		t.Fatalf("expected default commission, got %s", o.CommissionAmount)
	}
	if len(f.notifier.Events()) != 0 {
		t.Fatalf("expected restaurant notifications skipped, got %v", f.notifier.Types())
	}
	if _, ok := f.loyalty.Credited("order-12345678"); !ok {
		t.Fatal("expected loyalty credit even without restaurant")
	}
}

func TestConfirmSwallowsOptionalFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"schema missing", domainErrors.ErrSchemaUnavailable},
		{"other failure", errors.New("disk full")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSettlementFixture(unpaidOrder(), succeededPayment())
			f.orders.FeesErr = tc.err
			f.receipts.Err = errors.New("broker down")

			res, err := f.uc.Confirm(context.Background(), "pi_1")
			if err != nil || res.AlreadyPaid {
				t.Fatalf("expected settlement despite failures, got %+v %v", res, err)
			}
			if f.runner.Errors["receipt:order-12345678"] == nil {
				t.Fatal("expected receipt task error to be reported to the runner")
			}
		})
	}
}

func TestConfirmValidation(t *testing.T) {
	notSucceeded := succeededPayment()
	notSucceeded.Status = "requires_payment_method"
	unlinked := succeededPayment()
	unlinked.OrderID = ""

	cases := []struct {
		name    string
		id      string
		payment *model.Payment
		procErr error
		getErr  error
		want    error
	}{
		{name: "empty id", id: "  ", want: domainErrors.ErrMissingPaymentIntent},
		{name: "not succeeded", id: "pi_1", payment: notSucceeded, want: domainErrors.ErrPaymentNotSucceeded},
		{name: "unlinked", id: "pi_1", payment: unlinked, want: domainErrors.ErrPaymentUnlinked},
		{name: "processor missing", id: "pi_404", want: domainErrors.ErrPaymentNotFound},
		{name: "processor down", id: "pi_1", procErr: errors.New("timeout"), want: domainErrors.ErrUpstream},
		{name: "storage down", id: "pi_1", payment: succeededPayment(), getErr: errors.New("conn reset"), want: domainErrors.ErrPersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSettlementFixture(unpaidOrder(), tc.payment)
			f.processor.PaymentErr = tc.procErr
			f.orders.GetErr = tc.getErr

			_, err := f.uc.Confirm(context.Background(), tc.id)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if n := len(f.orders.RecordedEvents()); n != 0 {
				t.Fatalf("expected no writes, got %d events", n)
			}
		})
	}
}

func TestConfirmUnknownOrder(t *testing.T) {
	payment := succeededPayment()
	payment.OrderID = "ghost"
	f := newSettlementFixture(unpaidOrder(), payment)

	if _, err := f.uc.Confirm(context.Background(), "pi_1"); !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
}

func TestHandleProcessorEvent(t *testing.T) {
	t.Run("succeeded settles", func(t *testing.T) {
		f := newSettlementFixture(unpaidOrder(), succeededPayment())
		err := f.uc.HandleProcessorEvent(context.Background(), model.ProcessorEvent{
			ID: "evt_1", Type: model.EventPaymentSucceeded, PaymentIntentID: "pi_1", OrderID: "order-12345678",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.orders.Order("order-12345678").IsPaid() {
			t.Fatal("expected order to be paid")
		}
	})

	t.Run("failed cancels unpaid order", func(t *testing.T) {
		f := newSettlementFixture(unpaidOrder(), nil)
		err := f.uc.HandleProcessorEvent(context.Background(), model.ProcessorEvent{
			ID: "evt_2", Type: model.EventPaymentFailed, PaymentIntentID: "pi_1", OrderID: "order-12345678",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o := f.orders.Order("order-12345678"); o.Status != model.OrderStatusCancelled {
			t.Fatalf("expected cancelled order, got %s", o.Status)
		}
		events := f.orders.RecordedEvents()
		if len(events) != 1 || events[0].Type != model.OutboxOrderStatusChanged {
			t.Fatalf("expected status change event, got %+v", events)
		}
	})

	t.Run("canceled leaves paid order alone", func(t *testing.T) {
		order := unpaidOrder()
		order.PaymentStatus = model.PaymentStatusPaid
		f := newSettlementFixture(order, nil)
		err := f.uc.HandleProcessorEvent(context.Background(), model.ProcessorEvent{
			ID: "evt_3", Type: model.EventPaymentCanceled, OrderID: order.ID,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o := f.orders.Order(order.ID); o.Status != model.OrderStatusPending {
			t.Fatalf("expected status unchanged, got %s", o.Status)
		}
	})

	t.Run("other types ignored", func(t *testing.T) {
		f := newSettlementFixture(unpaidOrder(), nil)
		err := f.uc.HandleProcessorEvent(context.Background(), model.ProcessorEvent{ID: "evt_4", Type: "charge.dispute.created"})
		if err != nil || f.processor.PaymentCalls != 0 {
			t.Fatalf("expected event ignored, got %v", err)
		}
	})

	t.Run("succeeded without intent", func(t *testing.T) {
		f := newSettlementFixture(unpaidOrder(), nil)
		err := f.uc.HandleProcessorEvent(context.Background(), model.ProcessorEvent{ID: "evt_5", Type: model.EventPaymentSucceeded})
		if !errors.Is(err, domainErrors.ErrMissingPaymentIntent) {
			t.Fatalf("expected missing intent, got %v", err)
		}
	})
}

func TestConfirmSplitsCommissionOnFullSubtotal(t *testing.T) {
	cases := []struct {
		name               string
		subtotal, discount string
		paid               string
		restaurant         model.Restaurant
		commission, payout string
		deliveryFee        string
		deliveryCommission string
	}{
		{
			name:     "discounted order at default rate",
			subtotal: "23.40", discount: "3.00", paid: "25.00",
			restaurant: model.Restaurant{Name: "Chez Paul"},
			commission: "4.68", payout: "18.72",
			deliveryFee: "4.11", deliveryCommission: "0.41",
		},
		{
			name:     "custom rate rounds half away from zero",
			subtotal: "33.33", discount: "5.00", paid: "30.82",
			restaurant: model.Restaurant{Name: "Chez Paul", CommissionRate: decimal.NewNullDecimal(dec("15"))},
			commission: "5.00", payout: "28.33",
			deliveryFee: "2.00", deliveryCommission: "0",
		},
		{
			name:     "fractional rate",
			subtotal: "19.99", discount: "2.50", paid: "21.88",
			restaurant: model.Restaurant{Name: "Chez Paul", CommissionRate: decimal.NewNullDecimal(dec("12.5"))},
			commission: "2.50", payout: "17.49",
			deliveryFee: "3.90", deliveryCommission: "0.39",
		},
		{
			name:     "internal brand",
			subtotal: "10.00", discount: "1.00", paid: "9.49",
			restaurant: model.Restaurant{Name: "CVN'EAT", CommissionRate: decimal.NewNullDecimal(dec("30"))},
			commission: "0", payout: "10.00",
			deliveryFee: "0", deliveryCommission: "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := unpaidOrder()
			order.Subtotal = dec(tc.subtotal)
			order.Discount = dec(tc.discount)
			payment := succeededPayment()
			payment.Amount = dec(tc.paid)
			f := newSettlementFixture(order, payment)
			restaurant := tc.restaurant
			restaurant.ID = "r-1"
			f.restaurants.Restaurants["r-1"] = &restaurant

			if _, err := f.uc.Confirm(context.Background(), "pi_1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			o := f.orders.Order(order.ID)
			if !o.CommissionAmount.Add(o.RestaurantPayout).Equal(o.Subtotal) {
				t.Fatalf("commission %s + payout %s != subtotal %s", o.CommissionAmount, o.RestaurantPayout, o.Subtotal)
			}
			checks := map[string][2]decimal.Decimal{
				"commission":          {o.CommissionAmount, dec(tc.commission)},
				"payout":              {o.RestaurantPayout, dec(tc.payout)},
				"delivery fee":        {o.DeliveryFee, dec(tc.deliveryFee)},
				"delivery commission": {o.DeliveryCommission, dec(tc.deliveryCommission)},
			}
			for name, c := range checks {
				if !c[0].Equal(c[1]) {
					t.Fatalf("%s: got %s, want %s", name, c[0], c[1])
				}
			}
		})
	}
}

func TestConfirmOnCancelledOrderRefundsWithoutSideEffects(t *testing.T) {
	order := unpaidOrder()
	order.Status = model.OrderStatusCancelled
	order.RejectionReason = strPtr("closed early")
	f := newSettlementFixture(order, succeededPayment())

	res, err := f.uc.Confirm(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AlreadyPaid {
		t.Fatalf("unexpected result %+v", res)
	}

	refunds := f.processor.RefundRequests()
	if len(refunds) != 1 || refunds[0].PaymentIntentID != "pi_1" || refunds[0].CancellationReason != "closed early" {
		t.Fatalf("expected refund of the late payment, got %+v", refunds)
	}
	// items 2 x 10.00 plus the inferred delivery fee
	if !refunds[0].Amount.Equal(dec("25.00")) {
		t.Fatalf("unexpected refund amount %s", refunds[0].Amount)
	}
	stored := f.orders.Order(order.ID)
	if stored.Status != model.OrderStatusCancelled || stored.PaymentStatus != model.PaymentStatusRefunded {
		t.Fatalf("expected cancelled refunded order, got %s/%s", stored.Status, stored.PaymentStatus)
	}

	if f.runner.Ran("loyalty:"+order.ID) || f.runner.Ran("receipt:"+order.ID) {
		t.Fatalf("expected no first-settlement tasks, got %v", f.runner.Names)
	}
	if len(f.receipts.Jobs) != 0 {
		t.Fatal("expected no receipt print")
	}
	if types := f.notifier.Types(); len(types) != 1 || types[0] != model.EventOrderRefunded {
		t.Fatalf("expected only the refund notification, got %v", types)
	}
}

func TestConfirmOnCancelledOrderWithFullQueueStaysPaid(t *testing.T) {
	order := unpaidOrder()
	order.Status = model.OrderStatusCancelled
	f := newSettlementFixture(order, succeededPayment())
	f.runner.Reject = true

	if _, err := f.uc.Confirm(context.Background(), "pi_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.processor.RefundRequests()) != 0 || len(f.notifier.Events()) != 0 {
		t.Fatal("expected no refund and no notifications")
	}
	if stored := f.orders.Order(order.ID); !stored.IsPaid() {
		t.Fatalf("expected payment recorded for reconciliation, got %s", stored.PaymentStatus)
	}
}
