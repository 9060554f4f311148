package model

// Role is the authorization role carried by an authenticated actor.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	// RoleCourier keeps the persisted value used by existing accounts.
	RoleCourier Role = "delivery"
	RoleAdmin   Role = "admin"
)

// User is an account that can receive notifications.
type User struct {
	ID        string
	Email     string
	FirstName string
	Role      Role
}

// Actor is the verified caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Is reports whether the actor holds one of the roles.
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Platform is a mobile push platform.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// DeviceToken is a registered push destination of a user.
type DeviceToken struct {
	UserID   string
	Token    string
	Platform Platform
}

// LoyaltyCredit records points granted for one settled order.
type LoyaltyCredit struct {
	CustomerID string
	OrderID    string
	Points     int64
}
