package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// --- RestaurantRepository implementation ---

const restaurantColumns = `id, owner_user_id, name, commission_rate, email`

func (r *restaurantRepository) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	return r.getOne(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id=$1`, id)
}

// GetByOwner returns the restaurant managed by the partner account.
func (r *restaurantRepository) GetByOwner(ctx context.Context, userID string) (*model.Restaurant, error) {
	return r.getOne(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE owner_user_id=$1 ORDER BY id LIMIT 1`, userID)
}

func (r *restaurantRepository) getOne(ctx context.Context, query string, arg string) (*model.Restaurant, error) {
	var rest model.Restaurant
	err := r.storage.pool.QueryRow(ctx, query, arg).Scan(&rest.ID, &rest.OwnerUserID, &rest.Name, &rest.CommissionRate, &rest.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrRestaurantNotFound
		}
		return nil, err
	}
	return &rest, nil
}

// --- UserRepository implementation ---

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	const query = `SELECT id, email, first_name, role FROM users WHERE id=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- DeviceTokenRepository implementation ---

func (r *deviceTokenRepository) ListByUsers(ctx context.Context, userIDs ...string) ([]model.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT user_id, token, platform FROM device_tokens WHERE user_id = ANY($1)`
	return r.list(ctx, query, userIDs)
}

func (r *deviceTokenRepository) ListByRole(ctx context.Context, role model.Role) ([]model.DeviceToken, error) {
	const query = `SELECT d.user_id, d.token, d.platform FROM device_tokens d
                   JOIN users u ON u.id = d.user_id WHERE u.role=$1`
	return r.list(ctx, query, role)
}

func (r *deviceTokenRepository) list(ctx context.Context, query string, arg any) ([]model.DeviceToken, error) {
	rows, err := r.storage.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DeviceToken
	for rows.Next() {
		var t model.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- LoyaltyRepository implementation ---

func (r *loyaltyRepository) Credit(ctx context.Context, credit model.LoyaltyCredit) (bool, error) {
	const insertCredit = `INSERT INTO loyalty_credits (order_id, customer_id, points) VALUES ($1, $2, $3)
                          ON CONFLICT (order_id) DO NOTHING`
	const addPoints = `UPDATE users SET loyalty_points = loyalty_points + $2 WHERE id=$1`

	var credited bool
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertCredit, credit.OrderID, credit.CustomerID, credit.Points)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, addPoints, credit.CustomerID, credit.Points); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}
