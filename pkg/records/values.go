package records

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

func toString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// number reports the numeric value of v when v holds a Go number.
// Numeric-looking strings are not numbers here; they sort as text.
func number(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
	default:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// numberLoose also accepts numeric strings; used by range operators where the
// caller explicitly asked for numeric comparison.
func numberLoose(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func missing(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}
