package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-insights/pkg/records"
)

// DefaultWrappers are the generic envelope keys analytics backends wrap payloads in.
var DefaultWrappers = []string{"data", "items", "results"}

// ShapeHint tells the normalizer where a domain's payload lives and which
// fields every record must carry.
type ShapeHint struct {
	// Key is the domain-specific envelope key, e.g. "priorities" or "trends".
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
	// Wrappers overrides DefaultWrappers when set.
	Wrappers []string `json:"wrappers,omitempty" yaml:"wrappers,omitempty"`
	// Defaults maps field names to typed default values.
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	// Aliases maps a canonical field to alternative names backends use for it.
	Aliases map[string][]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

func (h ShapeHint) wrappers() []string {
	if len(h.Wrappers) > 0 {
		return h.Wrappers
	}
	return DefaultWrappers
}

// Decode parses a JSON body. An empty body decodes to nil.
func Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize: decode payload: %w", err)
	}
	return out, nil
}

// Records extracts the record list from raw. The domain key wins, then the
// generic wrappers (which may hold the domain key one level down), then raw
// itself when it is a list. Anything else yields an empty list.
func Records(raw any, hint ShapeHint) []records.Record {
	list, ok := asList(resolve(raw, hint))
	if !ok {
		return []records.Record{}
	}
	out := make([]records.Record, 0, len(list))
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		out = append(out, shapeRecord(m, hint))
	}
	return out
}

// Summary extracts a single summary object from raw. It never returns nil.
func Summary(raw any, hint ShapeHint) records.Record {
	m, ok := asMap(resolve(raw, hint))
	if !ok {
		m = map[string]any{}
	}
	return shapeRecord(m, hint)
}

func resolve(raw any, hint ShapeHint) any {
	m, ok := asMap(raw)
	if !ok {
		return raw
	}
	if hint.Key != "" {
		if v, ok := m[hint.Key]; ok && v != nil {
			return v
		}
	}
	for _, wrapper := range hint.wrappers() {
		v, ok := m[wrapper]
		if !ok || v == nil {
			continue
		}
		if inner, ok := asMap(v); ok && hint.Key != "" {
			if nested, ok := inner[hint.Key]; ok && nested != nil {
				return nested
			}
		}
		return v
	}
	return raw
}

func shapeRecord(src map[string]any, hint ShapeHint) records.Record {
	out := make(records.Record, len(src)+len(hint.Defaults))
	for k, v := range src {
		out[k] = v
	}
	for canonical, aliases := range hint.Aliases {
		if v, ok := out[canonical]; ok && v != nil {
			continue
		}
		for _, alias := range aliases {
			if v, ok := src[alias]; ok && v != nil {
				out[canonical] = v
				break
			}
		}
	}
	for field, def := range hint.Defaults {
		v, ok := out[field]
		if !ok || v == nil {
			out[field] = copyDefault(def)
			continue
		}
		out[field] = coerce(v, def)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case records.Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, item := range l {
			out[i] = item
		}
		return out, true
	case []records.Record:
		out := make([]any, len(l))
		for i, item := range l {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
