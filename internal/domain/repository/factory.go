package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Orders() OrderRepository
	Restaurants() RestaurantRepository
	Users() UserRepository
	DeviceTokens() DeviceTokenRepository
	Loyalty() LoyaltyRepository
	Outbox() OutboxRepository
}
