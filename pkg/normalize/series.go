package normalize

import (
	"sort"
	"strconv"

	"github.com/spf13/cast"

	"github.com/goliatone/go-insights/pkg/geometry"
)

var (
	timestampFields = []string{"timestamp", "date", "day", "period", "time"}
	valueFields     = []string{"value", "count", "score", "total"}
	categoryFields  = []string{"category", "name", "severity", "type", "label"}
	countFields     = []string{"count", "value", "total"}
)

// Series extracts an ordered time series. Items are objects carrying one of the
// timestamp and value aliases, or bare numbers indexed by position. An object of
// timestamp to number pairs is accepted too and ordered by key. The input order
// is kept otherwise; gaps are not filled.
func Series(raw any, hint ShapeHint) []geometry.SeriesPoint {
	if hint.Key == "" {
		hint.Key = "data_points"
	}
	target := resolve(raw, hint)
	if m, ok := asMap(target); ok {
		return seriesFromMap(m)
	}
	list, ok := asList(target)
	if !ok {
		return []geometry.SeriesPoint{}
	}
	out := make([]geometry.SeriesPoint, 0, len(list))
	for i, item := range list {
		if m, ok := asMap(item); ok {
			out = append(out, seriesPoint(m, i))
			continue
		}
		if f, err := cast.ToFloat64E(item); err == nil && item != nil {
			out = append(out, geometry.SeriesPoint{Timestamp: strconv.Itoa(i), Value: f})
		}
	}
	return out
}

func seriesPoint(m map[string]any, index int) geometry.SeriesPoint {
	point := geometry.SeriesPoint{Timestamp: strconv.Itoa(index)}
	tsField := firstPresent(m, timestampFields)
	if tsField != "" {
		point.Timestamp = cast.ToString(m[tsField])
	}
	valField := firstPresent(m, valueFields)
	if valField != "" {
		point.Value = cast.ToFloat64(m[valField])
	}
	for k, v := range m {
		if k == tsField || k == valField {
			continue
		}
		if point.Aux == nil {
			point.Aux = map[string]any{}
		}
		point.Aux[k] = v
	}
	return point
}

func seriesFromMap(m map[string]any) []geometry.SeriesPoint {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if _, err := cast.ToFloat64E(v); err != nil || v == nil {
			return []geometry.SeriesPoint{}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]geometry.SeriesPoint, len(keys))
	for i, k := range keys {
		out[i] = geometry.SeriesPoint{Timestamp: k, Value: cast.ToFloat64(m[k])}
	}
	return out
}

// Categories extracts per-category totals. Objects of category to count pairs
// and lists of {category, count} items are both accepted. Categories named in
// order come first in that order; the rest follow alphabetically for objects
// and in arrival order for lists. Repeated categories are summed.
func Categories(raw any, hint ShapeHint, order []string) []geometry.CategoryTotal {
	if hint.Key == "" {
		hint.Key = "by_category"
	}
	target := resolve(raw, hint)
	var (
		keys   []string
		counts = map[string]float64{}
	)
	add := func(category string, count float64) {
		if category == "" {
			return
		}
		if _, seen := counts[category]; !seen {
			keys = append(keys, category)
		}
		counts[category] += count
	}
	if m, ok := asMap(target); ok {
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			f, err := cast.ToFloat64E(m[name])
			if err != nil || m[name] == nil {
				continue
			}
			add(name, f)
		}
	} else if list, ok := asList(target); ok {
		for _, item := range list {
			entry, ok := asMap(item)
			if !ok {
				continue
			}
			category := cast.ToString(entry[firstPresent(entry, categoryFields)])
			count := 0.0
			if field := firstPresent(entry, countFields); field != "" {
				count = cast.ToFloat64(entry[field])
			}
			add(category, count)
		}
	}
	out := make([]geometry.CategoryTotal, 0, len(keys))
	for _, k := range orderKeys(keys, order) {
		out = append(out, geometry.CategoryTotal{Category: k, Count: counts[k]})
	}
	return out
}

func orderKeys(keys, order []string) []string {
	if len(order) == 0 {
		return keys
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	used := make(map[string]bool, len(keys))
	for _, k := range order {
		if present[k] && !used[k] {
			out = append(out, k)
			used[k] = true
		}
	}
	for _, k := range keys {
		if !used[k] {
			out = append(out, k)
		}
	}
	return out
}

func firstPresent(m map[string]any, fields []string) string {
	for _, f := range fields {
		if v, ok := m[f]; ok && v != nil {
			return f
		}
	}
	return ""
}
