package model

import "github.com/shopspring/decimal"

// Restaurant is a partner establishment receiving payouts.
type Restaurant struct {
	ID          string
	OwnerUserID string
	Name        string
	// CommissionRate is a percentage override; invalid means the platform default.
	CommissionRate decimal.NullDecimal
	Email          *string
}

// LineItem is one priced line of an order. UnitPrice already includes modifier surcharges.
type LineItem struct {
	OrderID   string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total is the priced amount of the line.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
