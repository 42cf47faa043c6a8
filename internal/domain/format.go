package domain

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatNumber renders a price or market cap with thousands separators.
// Sub-unit prices keep more digits so small caps stay readable.
func FormatNumber(d decimal.Decimal) string {
	f := d.InexactFloat64()
	digits := 2
	if abs := d.Abs(); abs.LessThan(decimal.NewFromInt(1)) && !abs.IsZero() {
		digits = 6
	}
	return humanize.CommafWithDigits(f, digits)
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
