// Package cart holds the shopping cart state machine: a pure reducer over a
// closed set of commands plus a Store that owns the current state.
package cart

import (
	"math"

	"storefront/internal/domain"
)

// MaxQuantity bounds a single line. Adds past it saturate and larger
// SetQuantity values are cut to it, so quantities never wrap.
const MaxQuantity int64 = 1 << 40

// Item is one cart line. Quantity is always >= 1 while the item is retained.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// State is an immutable cart snapshot. Items keep insertion order.
type State struct {
	Items   []Item `json:"items"`
	Visible bool   `json:"visible"`
}

// PriceLookup resolves the live catalog price of a product.
type PriceLookup interface {
	PriceOf(productID string) (int64, bool)
}

// PriceLookupFunc adapts a plain function to PriceLookup.
type PriceLookupFunc func(productID string) (int64, bool)

func (f PriceLookupFunc) PriceOf(productID string) (int64, bool) { return f(productID) }

// ItemCount is the sum of quantities, saturating at math.MaxInt64.
func (s State) ItemCount() int64 {
	var n int64
	for _, it := range s.Items {
		n = addSat(n, it.Quantity)
	}
	return n
}

// Subtotal prices the cart against the live catalog. Items the lookup cannot
// resolve contribute nothing. The sum saturates instead of wrapping.
func (s State) Subtotal(prices PriceLookup) int64 {
	var total int64
	for _, it := range s.Items {
		if p, ok := prices.PriceOf(it.ProductID); ok {
			total = addSat(total, LineTotal(p, it.Quantity))
		}
	}
	return total
}

// LineTotal is price × quantity for non-negative operands, saturating at
// math.MaxInt64.
func LineTotal(price, qty int64) int64 {
	if price <= 0 || qty <= 0 {
		return 0
	}
	if qty > math.MaxInt64/price {
		return math.MaxInt64
	}
	return price * qty
}

func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// Quantity returns the quantity held for productID, 0 when absent.
func (s State) Quantity(productID string) int64 {
	if i := s.indexOf(productID); i >= 0 {
		return s.Items[i].Quantity
	}
	return 0
}

// OrderLines serializes the cart as an order request: id and quantity only.
func (s State) OrderLines() []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, domain.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// IsEmpty reports whether the cart has no items.
func (s State) IsEmpty() bool { return len(s.Items) == 0 }

func (s State) indexOf(productID string) int {
	for i, it := range s.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, Visible: s.Visible}
}
