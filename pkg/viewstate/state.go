package viewstate

import (
	"strings"
	"time"

	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
)

// SliceKind selects how a slice payload is normalized.
type SliceKind string

const (
	KindRecords    SliceKind = "records"
	KindSummary    SliceKind = "summary"
	KindSeries     SliceKind = "series"
	KindCategories SliceKind = "categories"
)

// SliceSpec describes one named slice of a dashboard's state.
type SliceSpec struct {
	Kind      SliceKind           `json:"kind" yaml:"kind"`
	KeyFields []string            `json:"key_fields,omitempty" yaml:"key_fields,omitempty"`
	Shape     normalize.ShapeHint `json:"shape,omitempty" yaml:"shape,omitempty"`
	// Entities lists update entity names routed to this slice besides its own name.
	Entities      []string `json:"entities,omitempty" yaml:"entities,omitempty"`
	CategoryOrder []string `json:"category_order,omitempty" yaml:"category_order,omitempty"`
}

func (s SliceSpec) kind() SliceKind {
	if s.Kind == "" {
		return KindRecords
	}
	return s.Kind
}

// Identity returns the key used to merge records of this slice.
func (s SliceSpec) Identity() records.KeyFunc {
	fields := s.KeyFields
	if len(fields) == 0 {
		fields = []string{"id"}
	}
	return records.IdentityKey(fields...)
}

// Query is the user-controlled part of a dashboard view.
type Query struct {
	// Filters maps a field to the accepted values (membership).
	Filters  map[string][]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Search   string              `json:"search,omitempty" yaml:"search,omitempty"`
	Sort     records.SortState   `json:"sort" yaml:"sort"`
	Page     int                 `json:"page" yaml:"page"`
	PageSize int                 `json:"page_size" yaml:"page_size"`
	Period   string              `json:"period,omitempty" yaml:"period,omitempty"`
	GroupBy  string              `json:"group_by,omitempty" yaml:"group_by,omitempty"`
}

// Predicates turns the query's filters and search text into engine predicates.
// Fields are visited in sorted order so results are deterministic.
func (q Query) Predicates(searchFields []string) []records.Predicate {
	var out []records.Predicate
	for _, field := range sortedKeys(q.Filters) {
		values := q.Filters[field]
		if len(values) == 0 {
			continue
		}
		out = append(out, records.In(field, values...))
	}
	if strings.TrimSpace(q.Search) != "" && len(searchFields) > 0 {
		out = append(out, records.Search(strings.TrimSpace(q.Search), searchFields...))
	}
	return out
}

// Clone returns a deep copy of the query.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string][]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Warning records a slice that could not be loaded or applied.
type Warning struct {
	Slice   string    `json:"slice"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// State is a snapshot of everything a dashboard renders from.
type State struct {
	Slices     map[string][]records.Record         `json:"slices"`
	Summary    records.Record                      `json:"summary"`
	Series     map[string][]geometry.SeriesPoint   `json:"series"`
	Categories map[string][]geometry.CategoryTotal `json:"categories"`
	Query      Query                               `json:"query"`
	Status     live.Status                         `json:"status"`
	Version    uint64                              `json:"version"`
	UpdatedAt  time.Time                           `json:"updated_at"`
	Warnings   []Warning                           `json:"warnings,omitempty"`
}

func emptyState() State {
	return State{
		Slices:     map[string][]records.Record{},
		Summary:    records.Record{},
		Series:     map[string][]geometry.SeriesPoint{},
		Categories: map[string][]geometry.CategoryTotal{},
		Status:     live.StatusDisconnected,
	}
}

func (s State) clone() State {
	out := s
	out.Slices = make(map[string][]records.Record, len(s.Slices))
	for k, v := range s.Slices {
		out.Slices[k] = records.Clone(v)
	}
	out.Summary = s.Summary.Clone()
	out.Series = make(map[string][]geometry.SeriesPoint, len(s.Series))
	for k, v := range s.Series {
		out.Series[k] = append([]geometry.SeriesPoint(nil), v...)
	}
	out.Categories = make(map[string][]geometry.CategoryTotal, len(s.Categories))
	for k, v := range s.Categories {
		out.Categories[k] = append([]geometry.CategoryTotal(nil), v...)
	}
	out.Query = s.Query.Clone()
	out.Warnings = append([]Warning(nil), s.Warnings...)
	return out
}
