package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

const orderColumns = `id, restaurant_id, customer_id, status, payment_status,
    subtotal, discount, delivery_fee, platform_fee, total_paid,
    commission_amount, restaurant_payout, delivery_commission, processor_fee, processor_net,
    payment_intent_id, refund_id, refund_amount, refunded_at,
    ready_for_delivery, rejection_reason, preparation_time, security_code_hash, courier_id,
    created_at, preparation_started_at, updated_at`

// Postgres error codes for schemas that predate the optional fee columns.
const (
	codeUndefinedColumn = "42703"
	codeUndefinedTable  = "42P01"
)

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.Discount, &o.DeliveryFee, &o.PlatformFee, &o.TotalPaid,
		&o.CommissionAmount, &o.RestaurantPayout, &o.DeliveryCommission, &o.ProcessorFee, &o.ProcessorNet,
		&o.PaymentIntentID, &o.RefundID, &o.RefundAmount, &o.RefundedAt,
		&o.ReadyForDelivery, &o.RejectionReason, &o.PreparationTime, &o.SecurityCodeHash, &o.CourierID,
		&o.CreatedAt, &o.PreparationStartedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) LineItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	const query = `SELECT order_id, name, quantity, unit_price FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.OrderID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkPaid applies the settlement only while the order still has the expected payment status
// and is not linked to a different payment.
func (r *orderRepository) MarkPaid(ctx context.Context, s model.Settlement, expected model.PaymentStatus, event *model.OutboxEvent) (bool, error) {
	const query = `UPDATE orders SET payment_status='paid',
            total_paid=$3, delivery_fee=$4, delivery_commission=$5, platform_fee=$6,
            commission_amount=$7, restaurant_payout=$8,
            payment_intent_id=COALESCE(payment_intent_id, $2), updated_at=$10
        WHERE id=$1 AND payment_status=$9 AND (payment_intent_id IS NULL OR payment_intent_id=$2)`
	args := []any{
		s.OrderID, s.PaymentIntentID,
		s.TotalPaid, s.DeliveryFee, s.DeliveryCommission, s.PlatformFee,
		s.Commission, s.Payout,
		expected, r.storage.clock(),
	}
	return r.storage.conditionalWrite(ctx, query, args, event)
}

func (r *orderRepository) SaveProcessorFees(ctx context.Context, orderID string, fees model.ProcessorFees) error {
	const query = `UPDATE orders SET processor_fee=$2, processor_net=$3 WHERE id=$1`
	if _, err := r.storage.pool.Exec(ctx, query, orderID, fees.Fee, fees.Net); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == codeUndefinedColumn || pgErr.Code == codeUndefinedTable) {
			return domainErrors.ErrSchemaUnavailable
		}
		return err
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, upd model.StatusUpdate, event *model.OutboxEvent) (bool, error) {
	const query = `UPDATE orders SET status=$2,
            ready_for_delivery = ready_for_delivery OR $3::boolean,
            preparation_started_at = CASE WHEN $4::boolean AND preparation_started_at IS NULL THEN $8 ELSE preparation_started_at END,
            rejection_reason = COALESCE($5::text, rejection_reason),
            preparation_time = COALESCE($6::integer, preparation_time),
            updated_at=$8
        WHERE id=$1 AND status=$7 AND (courier_id IS NULL OR $9::boolean)`
	args := []any{
		upd.OrderID, upd.To,
		upd.MarkReady, upd.StampPreparation,
		upd.RejectionReason, upd.PreparationTime,
		upd.From, upd.At, upd.AllowClaimed,
	}
	return r.storage.conditionalWrite(ctx, query, args, event)
}

func (r *orderRepository) MarkRefunded(ctx context.Context, orderID string, refund model.Refund, event *model.OutboxEvent) (bool, error) {
	const query = `UPDATE orders SET payment_status='refunded', refund_id=$2, refund_amount=$3, refunded_at=$4, updated_at=$4
        WHERE id=$1 AND payment_status='paid' AND refund_id IS NULL`
	args := []any{orderID, refund.ID, refund.Amount, refund.At}
	return r.storage.conditionalWrite(ctx, query, args, event)
}

func (r *orderRepository) CancelUnpaid(ctx context.Context, orderID string, at time.Time, event *model.OutboxEvent) (bool, error) {
	const query = `UPDATE orders SET status='cancelled', updated_at=$2
        WHERE id=$1 AND status='pending' AND payment_status='unpaid'`
	return r.storage.conditionalWrite(ctx, query, []any{orderID, at}, event)
}
