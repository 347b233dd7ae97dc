package orders

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseWristSize parses a typed wrist size. Empty or non-numeric text reports false.
func ParseWristSize(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
