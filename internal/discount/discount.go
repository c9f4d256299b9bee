package discount

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StaffPercent   = 50
	StudentPercent = 5
)

// Resolve maps a discount code to a percentage. Matching is case-insensitive;
// unknown and empty codes give 0.
func Resolve(code string) int {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "STAFF":
		return StaffPercent
	case "STUDENT":
		return StudentPercent
	default:
		return 0
	}
}

// Valid reports whether percent is one of the percentages Resolve can return.
func Valid(percent int) bool {
	return percent == 0 || percent == StudentPercent || percent == StaffPercent
}

// Apply returns subtotal * (1 - percent/100).
func Apply(subtotal decimal.Decimal, percent int) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(int64(100 - percent))).Div(decimal.NewFromInt(100))
}
