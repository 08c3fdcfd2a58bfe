package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultReorderLevel is used when a product is created without a usable reorder level
var DefaultReorderLevel = decimal.NewFromInt(10)

// ParseAmount parses a user-supplied numeric field.
// Anything that is not a number becomes zero.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseNonNegative parses raw and floors the result at zero
func parseNonNegative(raw string) decimal.Decimal {
	d := ParseAmount(raw)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseReorderLevel falls back to the given default when raw is missing,
// malformed or negative.
func parseReorderLevel(raw string, fallback decimal.Decimal) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}
