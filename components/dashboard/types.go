package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

// DomainRegistry stores insight domain definitions discoverable via hooks or manifests.
type DomainRegistry interface {
	RegisterDomain(def DomainDefinition) error
	Domain(code string) (DomainDefinition, bool)
	Domains() []DomainDefinition
}

// PreferenceStore returns saved view preferences per viewer and domain.
type PreferenceStore interface {
	Preferences(ctx context.Context, viewer ViewerContext, domain string) (Preferences, error)
	SavePreferences(ctx context.Context, viewer ViewerContext, domain string, prefs Preferences) error
}

// RefreshHook notifies transports (REST/WebSocket/SSE) about view changes.
type RefreshHook interface {
	ViewUpdated(ctx context.Context, event ViewEvent) error
}

// CategorySource selects where a domain's category totals come from.
type CategorySource string

const (
	// CategoriesFromEndpoint uses totals pre-aggregated by the backend.
	CategoriesFromEndpoint CategorySource = "endpoint"
	// CategoriesFromRecords recounts the primary records client side.
	CategoriesFromRecords CategorySource = "records"
)

// SliceDefinition binds a backend endpoint to one slice of a dashboard's state.
type SliceDefinition struct {
	Name      string              `json:"name" yaml:"name"`
	Kind      viewstate.SliceKind `json:"kind" yaml:"kind"`
	Endpoint  string              `json:"endpoint" yaml:"endpoint"`
	Shape     normalize.ShapeHint `json:"shape,omitempty" yaml:"shape,omitempty"`
	KeyFields []string            `json:"key_fields,omitempty" yaml:"key_fields,omitempty"`
	// Entities lists stream update entities routed to this slice.
	Entities      []string          `json:"entities,omitempty" yaml:"entities,omitempty"`
	CategoryOrder []string          `json:"category_order,omitempty" yaml:"category_order,omitempty"`
	Params        map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	// Optional slices load silently: a failure falls back without a warning.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

func (s SliceDefinition) spec() viewstate.SliceSpec {
	return viewstate.SliceSpec{
		Kind:          s.Kind,
		KeyFields:     s.KeyFields,
		Shape:         s.Shape,
		Entities:      s.Entities,
		CategoryOrder: s.CategoryOrder,
	}
}

// ActionDefinition describes a mutation endpoint exposed as a user action.
type ActionDefinition struct {
	Name string `json:"name" yaml:"name"`
	// Endpoint may contain an {id} placeholder for the target record.
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	Verb       string `json:"verb,omitempty" yaml:"verb,omitempty"`
	ObjectType string `json:"object_type,omitempty" yaml:"object_type,omitempty"`
	// Refetch names the slices reloaded after the action; empty reloads all.
	Refetch []string `json:"refetch,omitempty" yaml:"refetch,omitempty"`
}

func (a ActionDefinition) endpointFor(id string) string {
	return strings.ReplaceAll(a.Endpoint, "{id}", id)
}

// DomainDefinition describes one insight dashboard: what it loads, how its
// records are keyed, grouped and sorted, and which actions it offers.
type DomainDefinition struct {
	Code        string `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	// NameLocalized and DescriptionLocalized map locales ("es", "es-mx") to text.
	NameLocalized        map[string]string `json:"name_localized,omitempty" yaml:"name_localized,omitempty"`
	DescriptionLocalized map[string]string `json:"description_localized,omitempty" yaml:"description_localized,omitempty"`

	Schema map[string]any    `json:"schema,omitempty" yaml:"schema,omitempty"`
	Slices []SliceDefinition `json:"slices" yaml:"slices"`
	// Primary is the records slice shown in the table. Defaults to the first
	// records slice.
	Primary        string             `json:"primary,omitempty" yaml:"primary,omitempty"`
	Actions        []ActionDefinition `json:"actions,omitempty" yaml:"actions,omitempty"`
	Stream         string             `json:"stream,omitempty" yaml:"stream,omitempty"`
	SeverityField  string             `json:"severity_field,omitempty" yaml:"severity_field,omitempty"`
	PriorityOrder  []string           `json:"priority_order,omitempty" yaml:"priority_order,omitempty"`
	GroupField     string             `json:"group_field,omitempty" yaml:"group_field,omitempty"`
	SearchFields   []string           `json:"search_fields,omitempty" yaml:"search_fields,omitempty"`
	DefaultSort    records.SortState  `json:"default_sort,omitempty" yaml:"default_sort,omitempty"`
	PageSize       int                `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Columns        []export.Column    `json:"columns,omitempty" yaml:"columns,omitempty"`
	CategorySource CategorySource     `json:"category_source,omitempty" yaml:"category_source,omitempty"`
	// CategorySlice names the categories slice, or the name recounted totals
	// are published under when CategorySource is records.
	CategorySlice string `json:"category_slice,omitempty" yaml:"category_slice,omitempty"`
	CategoryField string `json:"category_field,omitempty" yaml:"category_field,omitempty"`
	TrendSlice    string `json:"trend_slice,omitempty" yaml:"trend_slice,omitempty"`
	// TotalField names the summary field holding the donut total. Without it
	// donuts are drawn relative to the known categories.
	TotalField     string   `json:"total_field,omitempty" yaml:"total_field,omitempty"`
	DetailEndpoint string   `json:"detail_endpoint,omitempty" yaml:"detail_endpoint,omitempty"`
	Periods        []string `json:"periods,omitempty" yaml:"periods,omitempty"`
}

// PrimarySlice returns the name of the table slice.
func (d DomainDefinition) PrimarySlice() string {
	if d.Primary != "" {
		return d.Primary
	}
	for _, s := range d.Slices {
		if s.Kind == "" || s.Kind == viewstate.KindRecords {
			return s.Name
		}
	}
	return ""
}

// Slice returns the named slice definition.
func (d DomainDefinition) Slice(name string) (SliceDefinition, bool) {
	for _, s := range d.Slices {
		if s.Name == name {
			return s, true
		}
	}
	return SliceDefinition{}, false
}

// Action returns the named action definition.
func (d DomainDefinition) Action(name string) (ActionDefinition, bool) {
	for _, a := range d.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDefinition{}, false
}

// Specs converts the slice definitions into view state specs.
func (d DomainDefinition) Specs() map[string]viewstate.SliceSpec {
	out := make(map[string]viewstate.SliceSpec, len(d.Slices))
	for _, s := range d.Slices {
		out[s.Name] = s.spec()
	}
	return out
}

func (d DomainDefinition) categoryField() string {
	if d.CategoryField != "" {
		return d.CategoryField
	}
	return d.SeverityField
}

func (d DomainDefinition) categorySlice() string {
	if d.CategorySlice != "" {
		return d.CategorySlice
	}
	return "categories"
}

func (d DomainDefinition) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return defaultPageSize
}

// Preferences is the saved part of a viewer's query.
type Preferences struct {
	Sort     records.SortState   `json:"sort" yaml:"sort"`
	PageSize int                 `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Filters  map[string][]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Period   string              `json:"period,omitempty" yaml:"period,omitempty"`
	GroupBy  string              `json:"group_by,omitempty" yaml:"group_by,omitempty"`
}

func (p Preferences) isZero() bool {
	return p.Sort.Field == "" && p.PageSize == 0 && len(p.Filters) == 0 && p.Period == "" && p.GroupBy == ""
}

// ViewerContext captures the active user/locale information needed to render dashboards.
type ViewerContext struct {
	UserID   string   `json:"user_id,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Locale   string   `json:"locale,omitempty"`
}

// ViewEvent describes changes that transports might care about.
type ViewEvent struct {
	SessionID string      `json:"session_id"`
	Domain    string      `json:"domain"`
	Reason    string      `json:"reason"`
	Version   uint64      `json:"version"`
	Status    live.Status `json:"status,omitempty"`
	At        time.Time   `json:"at"`
}
