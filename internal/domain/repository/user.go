package repository

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// UserRepository reads notification recipients.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// DeviceTokenRepository lists registered push destinations.
type DeviceTokenRepository interface {
	ListByUsers(ctx context.Context, userIDs ...string) ([]model.DeviceToken, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.DeviceToken, error)
}

// LoyaltyRepository grants loyalty points. Crediting the same order twice is a no-op.
type LoyaltyRepository interface {
	Credit(ctx context.Context, credit model.LoyaltyCredit) (bool, error)
}
