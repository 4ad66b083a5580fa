package booking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Prices are carried as integer cents internally. The backend contract speaks
// 2-decimal SGD strings, so conversion happens only at the boundary.

// ParsePrice converts a backend-reported decimal price into cents without
// going through floating point. More than two fractional digits is rejected.
func ParsePrice(value json.Number) (int64, error) {
	raw := strings.TrimSpace(value.String())
	if raw == "" {
		return 0, fmt.Errorf("empty price")
	}
	if strings.HasPrefix(raw, "-") {
		return 0, fmt.Errorf("negative price %q", raw)
	}
	whole, frac, found := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	cents := units * 100
	if found {
		if len(frac) > 2 || frac == "" {
			return 0, fmt.Errorf("price %q has unsupported precision", raw)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		sub, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %q: %w", raw, err)
		}
		cents += sub
	}
	return cents, nil
}

// FormatCents renders cents as a 2-decimal amount string, e.g. 8900 -> "89.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
