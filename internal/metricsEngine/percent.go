package metricsEngine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePercent converts a percentage string such as "12.3%" into the
// fraction 0.123. The percent sign is optional.
func ParsePercent(s string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "%"))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrParse)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrParse, s)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrParse, s)
	}

	return d.Shift(-2).InexactFloat64(), nil
}

// FormatPercent renders a fraction as a percentage with one decimal place.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatWeight renders a stored target weight with at least two decimal
// places and without dropping any precision the user entered ("0.05%").
func FormatWeight(f float64) string {
	d := decimal.NewFromFloat(f).Shift(2)
	places := int32(2)
	if -d.Exponent() > places {
		places = -d.Exponent()
	}
	return d.StringFixed(places) + "%"
}
