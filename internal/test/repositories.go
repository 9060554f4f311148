package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// OrderRepositoryStub keeps orders in memory and applies the same guards as the database.
type OrderRepositoryStub struct {
	mu sync.Mutex

	Orders map[string]*model.Order
	Items  map[string][]model.LineItem
	Fees   map[string]model.ProcessorFees
	Events []model.OutboxEvent

	GetErr   error
	ItemsErr error
	FeesErr  error
	WriteErr error

	// BeforeWrite runs ahead of every conditional write, letting tests simulate a concurrent writer.
	BeforeWrite func(o *model.Order)

	MarkPaidCalls     int
	UpdateStatusCalls int
	MarkRefundedCalls int
}

// NewOrderRepositoryStub seeds the stub with the given orders.
func NewOrderRepositoryStub(orders ...*model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{
		Orders: make(map[string]*model.Order),
		Items:  make(map[string][]model.LineItem),
		Fees:   make(map[string]model.ProcessorFees),
	}
	for _, o := range orders {
		s.Orders[o.ID] = o
	}
	return s
}

// Order returns a snapshot of the stored order.
func (s *OrderRepositoryStub) Order(id string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// RecordedEvents returns a copy of stored outbox events.
func (s *OrderRepositoryStub) RecordedEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.Events...)
}

func (s *OrderRepositoryStub) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *OrderRepositoryStub) LineItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	if s.ItemsErr != nil {
		return nil, s.ItemsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LineItem(nil), s.Items[orderID]...), nil
}

func (s *OrderRepositoryStub) MarkPaid(ctx context.Context, st model.Settlement, expected model.PaymentStatus, event *model.OutboxEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarkPaidCalls++
	return s.write(st.OrderID, event, func(o *model.Order) bool {
		if o.PaymentStatus != expected {
			return false
		}
		if o.HasPaymentIntent() && *o.PaymentIntentID != st.PaymentIntentID {
			return false
		}
		st.Apply(o)
		return true
	})
}

func (s *OrderRepositoryStub) SaveProcessorFees(ctx context.Context, orderID string, fees model.ProcessorFees) error {
	if s.FeesErr != nil {
		return s.FeesErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fees[orderID] = fees
	return nil
}

func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, upd model.StatusUpdate, event *model.OutboxEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateStatusCalls++
	return s.write(upd.OrderID, event, func(o *model.Order) bool {
		if o.Status != upd.From || (o.Claimed() && !upd.AllowClaimed) {
			return false
		}
		upd.Apply(o)
		return true
	})
}

func (s *OrderRepositoryStub) MarkRefunded(ctx context.Context, orderID string, refund model.Refund, event *model.OutboxEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarkRefundedCalls++
	return s.write(orderID, event, func(o *model.Order) bool {
		if o.PaymentStatus != model.PaymentStatusPaid || o.HasRefund() {
			return false
		}
		id, at := refund.ID, refund.At
		o.PaymentStatus = model.PaymentStatusRefunded
		o.RefundID = &id
		o.RefundAmount.Decimal, o.RefundAmount.Valid = refund.Amount, true
		o.RefundedAt = &at
		return true
	})
}

func (s *OrderRepositoryStub) CancelUnpaid(ctx context.Context, orderID string, at time.Time, event *model.OutboxEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(orderID, event, func(o *model.Order) bool {
		if o.Status != model.OrderStatusPending || o.PaymentStatus != model.PaymentStatusUnpaid {
			return false
		}
		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = at
		return true
	})
}

func (s *OrderRepositoryStub) write(id string, event *model.OutboxEvent, apply func(o *model.Order) bool) (bool, error) {
	if s.WriteErr != nil {
		return false, s.WriteErr
	}
	o, ok := s.Orders[id]
	if !ok {
		return false, nil
	}
	if s.BeforeWrite != nil {
		s.BeforeWrite(o)
	}
	if !apply(o) {
		return false, nil
	}
	if event != nil {
		s.Events = append(s.Events, *event)
	}
	return true, nil
}

// RestaurantRepositoryStub serves restaurants from a map.
type RestaurantRepositoryStub struct {
	Restaurants map[string]*model.Restaurant
	Err         error
}

func (s *RestaurantRepositoryStub) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if r, ok := s.Restaurants[id]; ok {
		return r, nil
	}
	return nil, domainErrors.ErrRestaurantNotFound
}

func (s *RestaurantRepositoryStub) GetByOwner(ctx context.Context, userID string) (*model.Restaurant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	for _, r := range s.Restaurants {
		if r.OwnerUserID == userID {
			return r, nil
		}
	}
	return nil, domainErrors.ErrRestaurantNotFound
}

// UserRepositoryStub serves users from a map.
type UserRepositoryStub struct {
	Users map[string]*model.User
	Err   error
}

func (s *UserRepositoryStub) GetByID(ctx context.Context, id string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if u, ok := s.Users[id]; ok {
		return u, nil
	}
	return nil, domainErrors.ErrUserNotFound
}

// DeviceTokenRepositoryStub filters a fixed token list.
type DeviceTokenRepositoryStub struct {
	Tokens []model.DeviceToken
	Roles  map[string]model.Role
	Err    error
}

func (s *DeviceTokenRepositoryStub) ListByUsers(ctx context.Context, userIDs ...string) ([]model.DeviceToken, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.DeviceToken
	for _, t := range s.Tokens {
		for _, id := range userIDs {
			if t.UserID == id {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (s *DeviceTokenRepositoryStub) ListByRole(ctx context.Context, role model.Role) ([]model.DeviceToken, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.DeviceToken
	for _, t := range s.Tokens {
		if s.Roles[t.UserID] == role {
			out = append(out, t)
		}
	}
	return out, nil
}

// LoyaltyRepositoryStub records credits once per order.
type LoyaltyRepositoryStub struct {
	mu      sync.Mutex
	Credits map[string]model.LoyaltyCredit
	Err     error
}

func (s *LoyaltyRepositoryStub) Credit(ctx context.Context, credit model.LoyaltyCredit) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Credits == nil {
		s.Credits = make(map[string]model.LoyaltyCredit)
	}
	if _, ok := s.Credits[credit.OrderID]; ok {
		return false, nil
	}
	s.Credits[credit.OrderID] = credit
	return true, nil
}

// Credited returns the credit stored for orderID.
func (s *LoyaltyRepositoryStub) Credited(orderID string) (model.LoyaltyCredit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Credits[orderID]
	return c, ok
}

// OutboxRepositoryStub hands out queued batches and records outcomes.
type OutboxRepositoryStub struct {
	mu       sync.Mutex
	Batches  [][]model.OutboxEvent
	ClaimErr error
	Sent     []string
	Failed   map[string]string
}

func (s *OutboxRepositoryStub) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClaimErr != nil {
		return nil, s.ClaimErr
	}
	if len(s.Batches) == 0 {
		return nil, nil
	}
	batch := s.Batches[0]
	s.Batches = s.Batches[1:]
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (s *OutboxRepositoryStub) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, id)
	return nil
}

func (s *OutboxRepositoryStub) MarkFailed(ctx context.Context, id string, cause string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Failed == nil {
		s.Failed = make(map[string]string)
	}
	s.Failed[id] = cause
	return nil
}

// Outcome returns the sent ids and failure causes recorded so far.
func (s *OutboxRepositoryStub) Outcome() ([]string, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := make(map[string]string, len(s.Failed))
	for k, v := range s.Failed {
		failed[k] = v
	}
	return append([]string(nil), s.Sent...), failed
}

// FactoryStub bundles repository stubs behind repository.Factory.
type FactoryStub struct {
	OrdersRepo       repository.OrderRepository
	RestaurantsRepo  repository.RestaurantRepository
	UsersRepo        repository.UserRepository
	DeviceTokensRepo repository.DeviceTokenRepository
	LoyaltyRepo      repository.LoyaltyRepository
	OutboxRepo       repository.OutboxRepository
}

func (f FactoryStub) Orders() repository.OrderRepository             { return f.OrdersRepo }
func (f FactoryStub) Restaurants() repository.RestaurantRepository   { return f.RestaurantsRepo }
func (f FactoryStub) Users() repository.UserRepository               { return f.UsersRepo }
func (f FactoryStub) DeviceTokens() repository.DeviceTokenRepository { return f.DeviceTokensRepo }
func (f FactoryStub) Loyalty() repository.LoyaltyRepository          { return f.LoyaltyRepo }
func (f FactoryStub) Outbox() repository.OutboxRepository            { return f.OutboxRepo }

var (
	_ repository.OrderRepository       = (*OrderRepositoryStub)(nil)
	_ repository.RestaurantRepository  = (*RestaurantRepositoryStub)(nil)
	_ repository.UserRepository        = (*UserRepositoryStub)(nil)
	_ repository.DeviceTokenRepository = (*DeviceTokenRepositoryStub)(nil)
	_ repository.LoyaltyRepository     = (*LoyaltyRepositoryStub)(nil)
	_ repository.OutboxRepository      = (*OutboxRepositoryStub)(nil)
	_ repository.Factory               = FactoryStub{}
)
