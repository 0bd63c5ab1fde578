package domain

import "github.com/shopspring/decimal"

// FormatPrice renders minor units as a dollar string, e.g. 29999 -> "$299.99".
func FormatPrice(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
