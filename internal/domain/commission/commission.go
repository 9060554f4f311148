// Package commission holds the money rules applied when an order is settled.
//
// Every result is rounded to cents per order. Aggregates over many orders are
// sums of the rounded values and are never re-rounded.
package commission

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

var (
	// DefaultRate is the commission percentage charged when a restaurant has no override.
	DefaultRate = decimal.NewFromInt(20)
	// PlatformFee is the fixed service fee added to every checkout.
	PlatformFee = decimal.RequireFromString("0.49")
	// DeliveryBaseFee is the delivery fee up to which no delivery commission is taken.
	DeliveryBaseFee = decimal.RequireFromString("2.50")
	// DeliveryRate is the percentage of the delivery fee taken above the base fee.
	DeliveryRate = decimal.NewFromInt(10)

	hundred = decimal.NewFromInt(100)
)

const cents int32 = 2

// Split is the division of an order subtotal between platform and restaurant.
type Split struct {
	Rate       decimal.Decimal
	Commission decimal.Decimal
	Payout     decimal.Decimal
}

// SplitSubtotal computes commission and payout for one order. Internal restaurants pay nothing.
func SplitSubtotal(subtotal decimal.Decimal, restaurant *model.Restaurant, internalBrands []string) Split {
	rate := RateFor(restaurant, internalBrands)
	commission := subtotal.Mul(rate).Div(hundred).Round(cents)
	return Split{
		Rate:       rate,
		Commission: commission,
		Payout:     subtotal.Sub(commission),
	}
}

// RateFor returns the effective commission percentage of a restaurant.
func RateFor(restaurant *model.Restaurant, internalBrands []string) decimal.Decimal {
	if restaurant == nil {
		return DefaultRate
	}
	if IsInternal(restaurant.Name, internalBrands) {
		return decimal.Zero
	}
	if restaurant.CommissionRate.Valid {
		return restaurant.CommissionRate.Decimal
	}
	return DefaultRate
}

// DeliveryCommission is zero up to and including the base fee, ten percent above it.
func DeliveryCommission(deliveryFee decimal.Decimal) decimal.Decimal {
	if deliveryFee.LessThanOrEqual(DeliveryBaseFee) {
		return decimal.Zero
	}
	return deliveryFee.Mul(DeliveryRate).Div(hundred).Round(cents)
}

// InferDeliveryFee derives the delivery fee from what the processor captured.
// Checkout does not carry the fee in the payment, so it is the remainder after
// the discounted subtotal and the platform fee. A negative remainder is clamped.
func InferDeliveryFee(paid, subtotal, discount decimal.Decimal) decimal.Decimal {
	fee := paid.Sub(subtotal.Sub(discount)).Sub(PlatformFee).Round(cents)
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}

// LoyaltyPoints grants one point per whole currency unit spent on articles.
func LoyaltyPoints(subtotal, discount decimal.Decimal) int64 {
	spent := subtotal.Sub(discount)
	if !spent.IsPositive() {
		return 0
	}
	return spent.Floor().IntPart()
}

// Total sums already rounded per-order values.
func Total(values ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}

// IsInternal reports whether the restaurant name matches one of the platform's own brands.
func IsInternal(name string, brands []string) bool {
	normalized := NormalizeName(name)
	if normalized == "" {
		return false
	}
	for _, brand := range brands {
		if NormalizeName(brand) == normalized {
			return true
		}
	}
	return false
}

// NormalizeName lower-cases, strips accents and drops every non alphanumeric rune.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LineItemsSubtotal sums unit price times quantity over the items.
func LineItemsSubtotal(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Total())
	}
	return sum.Round(cents)
}

// RefundAmount is the recomputed article subtotal plus the full delivery fee.
// The stored subtotal is used only when the items price to nothing.
func RefundAmount(items []model.LineItem, storedSubtotal, deliveryFee decimal.Decimal) decimal.Decimal {
	subtotal := LineItemsSubtotal(items)
	if !subtotal.IsPositive() {
		subtotal = storedSubtotal
	}
	return subtotal.Add(deliveryFee).Round(cents)
}
