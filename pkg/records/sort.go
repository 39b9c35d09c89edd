package records

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a Direction, defaulting to Desc.
func ParseDirection(value string) Direction {
	if strings.EqualFold(strings.TrimSpace(value), string(Asc)) {
		return Asc
	}
	return Desc
}

// Reverse flips the direction.
func (d Direction) Reverse() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortState is the active sort column and direction of a table view.
type SortState struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Toggle selects field. Selecting the active field flips the direction,
// a newly selected field starts descending.
func (s SortState) Toggle(field string) SortState {
	if field == "" {
		return s
	}
	if field == s.Field {
		dir := s.Direction
		if dir == "" {
			dir = Desc
		}
		return SortState{Field: field, Direction: dir.Reverse()}
	}
	return SortState{Field: field, Direction: Desc}
}

// Apply sorts list with the state's field and direction.
func (s SortState) Apply(list []Record) []Record {
	if s.Field == "" {
		return list
	}
	return SortBy(list, s.Field, s.Direction)
}

// Sorter compares records with a locale-aware collator for text values.
type Sorter struct {
	tag language.Tag
}

// NewSorter builds a sorter for the given locale.
func NewSorter(tag language.Tag) Sorter {
	return Sorter{tag: tag}
}

// SortBy sorts a copy of list by field using the undetermined locale.
func SortBy(list []Record, field string, dir Direction) []Record {
	return Sorter{tag: language.Und}.SortByAccessor(list, Field(field), dir)
}

// SortByAccessor sorts a copy of list using an accessor.
func SortByAccessor(list []Record, acc Accessor, dir Direction) []Record {
	return Sorter{tag: language.Und}.SortByAccessor(list, acc, dir)
}

// SortBy sorts a copy of list by field.
func (s Sorter) SortBy(list []Record, field string, dir Direction) []Record {
	return s.SortByAccessor(list, Field(field), dir)
}

// SortByAccessor sorts a copy of list. Numbers compare numerically, other values
// through the collator with ties broken by byte order, and missing values are
// less than everything. The sort is stable.
func (s Sorter) SortByAccessor(list []Record, acc Accessor, dir Direction) []Record {
	out := make([]Record, len(list))
	copy(out, list)
	if acc == nil || len(out) < 2 {
		return out
	}
	values := make([]any, len(out))
	for i, r := range out {
		values[i] = acc(r)
	}
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	col := collate.New(s.tag, collate.IgnoreCase)
	sort.SliceStable(order, func(i, j int) bool {
		c := compareValues(col, values[order[i]], values[order[j]])
		if dir == Asc {
			return c < 0
		}
		return c > 0
	})
	sorted := make([]Record, len(out))
	for i, idx := range order {
		sorted[i] = out[idx]
	}
	return sorted
}

func compareValues(col *collate.Collator, a, b any) int {
	am, bm := missing(a), missing(b)
	switch {
	case am && bm:
		return 0
	case am:
		return -1
	case bm:
		return 1
	}
	fa, aok := number(a)
	fb, bok := number(b)
	switch {
	case aok && bok:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	sa, sb := toString(a), toString(b)
	if c := col.CompareString(sa, sb); c != 0 {
		return c
	}
	// Case-only differences still need a fixed order so desc reverses asc.
	return strings.Compare(sa, sb)
}
