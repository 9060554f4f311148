// Package receipt renders paid orders for thermal receipt printers.
package receipt

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

const (
	// Template identifies the receipt layout version.
	Template = "receipt_v1"
	// Format is the markup dialect understood by the printer app.
	Format = "dantsu_escpos_markup"

	width       = 32
	maxNameLen  = 24
	dateLayout  = "02/01/2006 15:04"
	brandHeader = "CVNEAT"
)

var location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatText renders the order in ESC/POS markup with [L], [C] and [R] alignment tags.
func FormatText(restaurant *model.Restaurant, order *model.Order, items []model.LineItem, now time.Time) string {
	name := "Restaurant"
	if restaurant != nil && strings.TrimSpace(restaurant.Name) != "" {
		name = strings.TrimSpace(restaurant.Name)
	}
	at := order.CreatedAt
	if at.IsZero() {
		at = now
	}
	rule := "[C]" + strings.Repeat("-", width)

	lines := []string{
		"[C]<b>" + brandHeader + "</b>",
		"[C]" + name,
		rule,
		fmt.Sprintf("[L]<b>Order #%s</b>", order.ShortID()),
		"[L]" + at.In(location).Format(dateLayout),
		rule,
	}

	if len(items) == 0 {
		lines = append(lines, "[L]Details unavailable")
	}
	for _, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		row := item.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		lines = append(lines, fmt.Sprintf("[L]%dx %s[R]%s", qty, clamp(itemName(item)), money(row)))
	}

	lines = append(lines, rule, "[L]Subtotal[R]"+money(order.Subtotal))
	discount := decimal.Min(order.Discount, order.Subtotal)
	if discount.IsPositive() {
		lines = append(lines, "[L]Discount[R]-"+money(discount))
	}
	if order.DeliveryFee.IsPositive() {
		lines = append(lines, "[L]Delivery[R]"+money(order.DeliveryFee))
	}
	if order.PlatformFee.IsPositive() {
		lines = append(lines, "[L]Service fee[R]"+money(order.PlatformFee))
	}
	lines = append(lines,
		fmt.Sprintf("[L]<b>TOTAL</b>[R]<b>%s</b>", money(totalPaid(order))),
		rule,
		"",
		"[C]Thank you!",
		"\n\n",
	)
	return strings.Join(lines, "\n")
}

// NewPrintJob wraps the rendered receipt for the restaurant printer queue.
func NewPrintJob(restaurant *model.Restaurant, order *model.Order, items []model.LineItem, now time.Time) model.PrintJob {
	return model.PrintJob{
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Template:     Template,
		Format:       Format,
		Text:         FormatText(restaurant, order, items, now),
	}
}

func totalPaid(order *model.Order) decimal.Decimal {
	if order.TotalPaid.IsPositive() {
		return order.TotalPaid
	}
	return order.SubtotalAfterDiscount().Add(order.DeliveryFee).Add(order.PlatformFee)
}

func itemName(item model.LineItem) string {
	if n := strings.TrimSpace(item.Name); n != "" {
		return n
	}
	return "Item"
}

func clamp(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	r := []rune(name)
	return string(r[:maxNameLen-1]) + "…"
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2) + "€"
}
