package records

import (
	"strings"
)

// Record is a single analytic finding (risk file, debt item, log pattern, ...)
// kept as an opaque field map.
type Record map[string]any

// Accessor extracts a value from a record.
type Accessor func(Record) any

// KeyFunc classifies a record into a string key.
type KeyFunc func(Record) string

// Get resolves a field, following dotted paths into nested maps.
func (r Record) Get(field string) any {
	if r == nil || field == "" {
		return nil
	}
	if v, ok := r[field]; ok {
		return v
	}
	if !strings.Contains(field, ".") {
		return nil
	}
	var current any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[part]
		case Record:
			current = node[part]
		default:
			return nil
		}
	}
	return current
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a copy of r with the fields of patch applied on top.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Field returns an accessor reading the named field.
func Field(name string) Accessor {
	return func(r Record) any {
		return r.Get(name)
	}
}

// StringKey returns a KeyFunc rendering the named field as a string. Missing
// values map to fallback.
func StringKey(field, fallback string) KeyFunc {
	return func(r Record) string {
		if s := toString(r.Get(field)); s != "" {
			return s
		}
		return fallback
	}
}

// IdentityKey returns the first non-empty value among fields. It is the
// identity used for merges and drill-down lookups.
func IdentityKey(fields ...string) KeyFunc {
	return func(r Record) string {
		for _, f := range fields {
			if s := toString(r.Get(f)); s != "" {
				return s
			}
		}
		return ""
	}
}

// Index maps identity keys to positions. Records without identity are skipped;
// on duplicates the first position wins.
func Index(list []Record, key KeyFunc) map[string]int {
	idx := make(map[string]int, len(list))
	for i, r := range list {
		k := key(r)
		if k == "" {
			continue
		}
		if _, seen := idx[k]; !seen {
			idx[k] = i
		}
	}
	return idx
}

// Find returns the record whose identity matches id.
func Find(list []Record, key KeyFunc, id string) (Record, bool) {
	if id == "" {
		return nil, false
	}
	for _, r := range list {
		if key(r) == id {
			return r, true
		}
	}
	return nil, false
}

// Clone copies the slice and every record in it.
func Clone(list []Record) []Record {
	if list == nil {
		return nil
	}
	out := make([]Record, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}
