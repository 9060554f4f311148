package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
	now    func() time.Time
}

type orderRepository struct {
	storage *Storage
}

type restaurantRepository struct {
	storage *Storage
}

type userRepository struct {
	storage *Storage
}

type deviceTokenRepository struct {
	storage *Storage
}

type loyaltyRepository struct {
	storage *Storage
}

type outboxRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger, now: time.Now}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Restaurants() repository.RestaurantRepository {
	return &restaurantRepository{storage: s}
}

func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) DeviceTokens() repository.DeviceTokenRepository {
	return &deviceTokenRepository{storage: s}
}

func (s *Storage) Loyalty() repository.LoyaltyRepository {
	return &loyaltyRepository{storage: s}
}

func (s *Storage) Outbox() repository.OutboxRepository {
	return &outboxRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL DEFAULT '',
            first_name TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'customer',
            loyalty_points BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS restaurants (
            id UUID PRIMARY KEY,
            owner_user_id UUID NOT NULL REFERENCES users(id),
            name TEXT NOT NULL,
            commission_rate NUMERIC(5,2),
            email TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            restaurant_id UUID NOT NULL REFERENCES restaurants(id),
            customer_id UUID NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            payment_status TEXT NOT NULL DEFAULT 'unpaid',
            subtotal NUMERIC(10,2) NOT NULL DEFAULT 0,
            discount NUMERIC(10,2) NOT NULL DEFAULT 0,
            delivery_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
            platform_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
            total_paid NUMERIC(10,2) NOT NULL DEFAULT 0,
            commission_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
            restaurant_payout NUMERIC(10,2) NOT NULL DEFAULT 0,
            delivery_commission NUMERIC(10,2) NOT NULL DEFAULT 0,
            processor_fee NUMERIC(10,2),
            processor_net NUMERIC(10,2),
            payment_intent_id TEXT,
            refund_id TEXT,
            refund_amount NUMERIC(10,2),
            refunded_at TIMESTAMPTZ,
            ready_for_delivery BOOLEAN NOT NULL DEFAULT FALSE,
            rejection_reason TEXT,
            preparation_time INTEGER,
            security_code_hash TEXT,
            courier_id UUID REFERENCES users(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            preparation_started_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            name TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL,
            unit_price NUMERIC(10,2) NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS device_tokens (
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            token TEXT NOT NULL,
            platform TEXT NOT NULL,
            PRIMARY KEY (user_id, token)
        )`,
		`CREATE TABLE IF NOT EXISTS loyalty_credits (
            order_id UUID PRIMARY KEY REFERENCES orders(id),
            customer_id UUID NOT NULL REFERENCES users(id),
            points BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
            id UUID PRIMARY KEY,
            aggregate_id UUID NOT NULL,
            type TEXT NOT NULL,
            payload JSONB NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            attempts INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            claimed_at TIMESTAMPTZ,
            sent_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_events(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// conditionalWrite runs a guarded update and stores the event only when the guard matched.
func (s *Storage) conditionalWrite(ctx context.Context, query string, args []any, event *model.OutboxEvent) (bool, error) {
	var applied bool
	err := s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		applied = true
		if event == nil {
			return nil
		}
		return insertOutboxTx(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

func (s *Storage) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
