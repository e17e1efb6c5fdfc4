// Package normalize coerces heterogeneous raw market-data values into
// well-defined numeric types. ParseAmount and ParseQuantity are total
// functions: they trade precision loss for availability and never fail.
// Callers must not rely on them for validation, only for coercion.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// cleanNumeric strips every rune that is not a digit or a decimal point,
// preserving at most one leading minus sign. "₹1,234.50" → "1234.50".
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ParseAmount parses a raw value of unknown type into a decimal amount.
// Currency symbols, thousands separators, and units are stripped before
// parsing. Returns 0 for anything that does not parse to a finite number.
func ParseAmount(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case float32:
		return ParseAmount(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		return ParseAmount(v.String())
	case string:
		cleaned := cleanNumeric(v)
		if cleaned == "" {
			return 0
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return ParseAmount(fmt.Sprintf("%v", raw))
	}
}

// ParseQuantity parses a raw value of unknown type into a whole share
// count, truncating any fractional part. Returns 0 on failure.
func ParseQuantity(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return int(ParseAmount(raw))
	}
}

// FlexFloat handles JSON values that may be either a number or a string
// ("410.65", "₹410.65", "N/A", 410.65). Unparseable values decode to 0.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(ParseAmount(num))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexFloat(ParseAmount(s))
		return nil
	}
	// null, objects, arrays: coerce to zero rather than failing the
	// whole payload.
	*f = 0
	return nil
}

// Float64 returns the underlying value
func (f FlexFloat) Float64() float64 { return float64(f) }
