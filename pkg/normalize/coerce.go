package normalize

import (
	"strings"

	"github.com/spf13/cast"
)

// coerce converts v to the type of def, falling back to def when the
// conversion is not possible.
func coerce(v, def any) any {
	switch d := def.(type) {
	case string:
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
		return d
	case float64:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
		return d
	case int:
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
		return d
	case bool:
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
		return d
	case []string:
		switch v.(type) {
		case []string, []any:
			if s, err := cast.ToStringSliceE(v); err == nil {
				return s
			}
		}
		return copyDefault(d)
	case []any:
		if _, ok := asList(v); ok {
			return v
		}
		return copyDefault(d)
	case map[string]any:
		if _, ok := asMap(v); ok {
			return v
		}
		return copyDefault(d)
	default:
		return v
	}
}

func copyDefault(def any) any {
	switch d := def.(type) {
	case []string:
		return append([]string{}, d...)
	case []any:
		return append([]any{}, d...)
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	default:
		return def
	}
}

// String reads field from m as a string. Missing or blank values yield fallback.
func String(m map[string]any, field, fallback string) string {
	s, err := cast.ToStringE(lookup(m, field))
	if err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Float reads field from m as a float64.
func Float(m map[string]any, field string, fallback float64) float64 {
	v := lookup(m, field)
	if v == nil {
		return fallback
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fallback
	}
	return f
}

// Int reads field from m as an int.
func Int(m map[string]any, field string, fallback int) int {
	v := lookup(m, field)
	if v == nil {
		return fallback
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return fallback
	}
	return n
}

// Bool reads field from m as a bool.
func Bool(m map[string]any, field string, fallback bool) bool {
	v := lookup(m, field)
	if v == nil {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}

// Strings reads field from m as a list of non-empty strings. A single string
// is treated as a comma separated list.
func Strings(m map[string]any, field string, fallback []string) []string {
	v := lookup(m, field)
	if v == nil {
		return fallback
	}
	var parts []string
	if s, ok := v.(string); ok {
		parts = strings.Split(s, ",")
	} else {
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return fallback
		}
		parts = list
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func lookup(m map[string]any, field string) any {
	if m == nil {
		return nil
	}
	return m[field]
}
