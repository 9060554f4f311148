package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

func insertOutboxTx(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error {
	const query = `INSERT INTO outbox_events (id, aggregate_id, type, payload, status, created_at)
                   VALUES ($1, $2, $3, $4, 'pending', $5)`
	_, err := tx.Exec(ctx, query, event.ID, event.AggregateID, event.Type, []byte(event.Payload), event.CreatedAt)
	return err
}

// ClaimPending moves up to limit relayable events to processing. Events left in
// processing longer than lease are claimed again.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	const selectQuery = `SELECT id, aggregate_id, type, payload, attempts, created_at
                         FROM outbox_events
                         WHERE status='pending' OR (status='processing' AND claimed_at < $2)
                         ORDER BY created_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`
	const claimQuery = `UPDATE outbox_events SET status='processing', claimed_at=$2 WHERE id = ANY($1)`

	now := r.storage.clock()
	var events []model.OutboxEvent
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, limit, now.Add(-lease))
		if err != nil {
			return err
		}

		ids := make([]string, 0, limit)
		for rows.Next() {
			var (
				e       model.OutboxEvent
				payload []byte
			)
			if err := rows.Scan(&e.ID, &e.AggregateID, &e.Type, &payload, &e.Attempts, &e.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			e.Payload = payload
			e.Status = model.OutboxProcessing
			events = append(events, e)
			ids = append(ids, e.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, claimQuery, ids, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	const query = `UPDATE outbox_events SET status='sent', sent_at=$2, last_error=NULL WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id, r.storage.clock())
	return err
}

// MarkFailed returns the event to pending until maxAttempts deliveries have failed.
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, cause string, maxAttempts int) error {
	const query = `UPDATE outbox_events SET attempts = attempts + 1, last_error=$2, claimed_at=NULL,
            status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
        WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id, cause, maxAttempts)
	return err
}
