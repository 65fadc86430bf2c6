// internal/data/parser.go
package data

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// ParseRangeUpdate decodes an /update_ranges body. Only numeric high, medium
// and low members are picked up (fractions are floored); anything else keeps
// the prior value. The
// returned error only reports a body that is not a JSON object, in which case
// the update is empty.
func ParseRangeUpdate(raw []byte) (RangeUpdate, error) {
	var u RangeUpdate

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return u, errors.Wrap(err, "decoding range update")
	}

	u.High = intField(payload, "high")
	u.Medium = intField(payload, "medium")
	u.Low = intField(payload, "low")
	return u, nil
}

func intField(payload map[string]any, key string) *int {
	var f float64
	switch v := payload[key].(type) {
	case float64:
		f = v
	case string:
		// Numeric strings are what most form-posting dashboards send.
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	// Flooring keeps "attention > threshold" true for exactly the same
	// integer samples as the fractional value would.
	n := int(math.Floor(f))
	return &n
}
