package records

import (
	"fmt"
	"strings"
)

// Operator selects how a predicate compares a field with its value.
type Operator string

const (
	OpEquals    Operator = "eq"
	OpNotEquals Operator = "neq"
	OpContains  Operator = "contains"
	OpIn        Operator = "in"
	OpGTE       Operator = "gte"
	OpLTE       Operator = "lte"
)

// Predicate is a (field, operator, value) triple. Accessor overrides Field when set.
type Predicate struct {
	Field    string   `json:"field" yaml:"field"`
	Op       Operator `json:"op" yaml:"op"`
	Value    any      `json:"value" yaml:"value"`
	Accessor Accessor `json:"-" yaml:"-"`

	alternatives []Predicate
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEquals, Value: value}
}

// Contains builds a case-insensitive substring predicate.
func Contains(field, text string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: text}
}

// In builds a set-membership predicate.
func In[T any](field string, values ...T) Predicate {
	set := make([]any, len(values))
	for i, v := range values {
		set[i] = v
	}
	return Predicate{Field: field, Op: OpIn, Value: set}
}

// Search matches records where any of the fields contains text. An empty text
// matches everything.
func Search(text string, fields ...string) Predicate {
	alts := make([]Predicate, len(fields))
	for i, f := range fields {
		alts[i] = Contains(f, text)
	}
	return Predicate{Op: OpContains, Value: text, alternatives: alts}
}

// Validate reports predicates with an unknown operator.
func (p Predicate) Validate() error {
	switch p.Op {
	case OpEquals, OpNotEquals, OpContains, OpIn, OpGTE, OpLTE:
		return nil
	default:
		return fmt.Errorf("records: unsupported operator %q", p.Op)
	}
}

// Match evaluates the predicate against a record.
func (p Predicate) Match(r Record) bool {
	if p.alternatives != nil {
		if needle, _ := p.Value.(string); strings.TrimSpace(needle) == "" {
			return true
		}
		for _, alt := range p.alternatives {
			if alt.Match(r) {
				return true
			}
		}
		return false
	}
	var value any
	if p.Accessor != nil {
		value = p.Accessor(r)
	} else {
		value = r.Get(p.Field)
	}
	switch p.Op {
	case OpEquals:
		return equal(value, p.Value)
	case OpNotEquals:
		return !equal(value, p.Value)
	case OpContains:
		needle := strings.ToLower(toString(p.Value))
		if needle == "" {
			return true
		}
		return strings.Contains(strings.ToLower(toString(value)), needle)
	case OpIn:
		for _, candidate := range setValues(p.Value) {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	case OpGTE, OpLTE:
		left, lok := numberLoose(value)
		right, rok := numberLoose(p.Value)
		if !lok || !rok {
			return false
		}
		if p.Op == OpGTE {
			return left >= right
		}
		return left <= right
	default:
		return false
	}
}

// Filter returns the records matching every predicate. Without predicates the
// input slice is returned as is; the input is never mutated.
func Filter(list []Record, predicates ...Predicate) []Record {
	if len(predicates) == 0 {
		return list
	}
	out := make([]Record, 0, len(list))
	for _, r := range list {
		if matchAll(r, predicates) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll(r Record, predicates []Predicate) bool {
	for _, p := range predicates {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if missing(a) || missing(b) {
		return missing(a) && missing(b)
	}
	if fa, ok := number(a); ok {
		if fb, ok := numberLoose(b); ok {
			return fa == fb
		}
	}
	return toString(a) == toString(b)
}

func setValues(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = f
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case map[string]bool:
		out := make([]any, 0, len(val))
		for k, on := range val {
			if on {
				out = append(out, k)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []any{val}
	}
}
