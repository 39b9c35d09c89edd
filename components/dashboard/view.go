package dashboard

import (
	"time"

	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

const (
	defaultDonutRadius = 40.0
	barGap             = 4.0
	sparklineWidth     = 120.0
	sparklineHeight    = 24.0
	unknownGroup       = "unknown"
)

// ViewModel is everything the rendering layer needs for one dashboard.
type ViewModel struct {
	Domain      string                      `json:"domain"`
	Title       string                      `json:"title"`
	Description string                      `json:"description,omitempty"`
	Columns     []export.Column             `json:"columns"`
	Rows        []records.Record            `json:"rows"`
	Page        PageInfo                    `json:"page"`
	GroupField  string                      `json:"group_field,omitempty"`
	Groups      []GroupView                 `json:"groups,omitempty"`
	Summary     records.Record              `json:"summary"`
	Categories  []geometry.CategoryTotal    `json:"categories,omitempty"`
	Charts      Charts                      `json:"charts"`
	Related     map[string][]records.Record `json:"related,omitempty"`
	Actions     []string                    `json:"actions,omitempty"`
	Periods     []string                    `json:"periods,omitempty"`
	Query       viewstate.Query             `json:"query"`
	Status      live.Status                 `json:"status"`
	Warnings    []viewstate.Warning         `json:"warnings,omitempty"`
	Version     uint64                      `json:"version"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// PageInfo describes the visible page of the filtered records.
type PageInfo struct {
	Page      int  `json:"page"`
	PageSize  int  `json:"page_size"`
	PageCount int  `json:"page_count"`
	Total     int  `json:"total"`
	HasNext   bool `json:"has_next"`
	HasPrev   bool `json:"has_prev"`
}

// GroupView is one group of the filtered records with its badge counts.
type GroupView struct {
	Key     string           `json:"key"`
	Count   int              `json:"count"`
	Counts  []records.Tally  `json:"counts,omitempty"`
	Records []records.Record `json:"records"`
}

// Charts holds the SVG primitives of a view.
type Charts struct {
	Trends []TrendChart `json:"trends,omitempty"`
	Donut  *DonutChart  `json:"donut,omitempty"`
	Bars   *BarChart    `json:"bars,omitempty"`
}

// TrendChart is a series projected into a viewport.
type TrendChart struct {
	Name      string                 `json:"name"`
	Points    []geometry.SeriesPoint `json:"points"`
	Line      string                 `json:"line"`
	Area      string                 `json:"area"`
	Sparkline string                 `json:"sparkline"`
	Max       float64                `json:"max"`
	Viewport  geometry.Viewport      `json:"viewport"`
}

// DonutChart is a category breakdown drawn as ring segments.
type DonutChart struct {
	Name          string             `json:"name"`
	Radius        float64            `json:"radius"`
	Circumference float64            `json:"circumference"`
	Total         float64            `json:"total"`
	Relative      bool               `json:"relative"`
	Segments      []geometry.Segment `json:"segments"`
}

// BarChart is a category breakdown drawn as bars.
type BarChart struct {
	Name     string            `json:"name"`
	Labels   []string          `json:"labels"`
	Bars     []geometry.Bar    `json:"bars"`
	Viewport geometry.Viewport `json:"viewport"`
}

// filterSort applies the query's filters, search and sort to the primary slice.
func filterSort(def DomainDefinition, st viewstate.State, sorter records.Sorter) []records.Record {
	list := st.Slices[def.PrimarySlice()]
	filtered := records.Filter(list, st.Query.Predicates(def.SearchFields)...)
	if st.Query.Sort.Field == "" {
		return filtered
	}
	return sorter.SortBy(filtered, st.Query.Sort.Field, st.Query.Sort.Direction)
}

func deriveView(def DomainDefinition, st viewstate.State, sorter records.Sorter, vp geometry.Viewport, radius float64) ViewModel {
	rows := filterSort(def, st, sorter)
	page := records.Paginate(rows, st.Query.Page, st.Query.PageSize)

	columns := def.Columns
	if len(columns) == 0 {
		columns = export.Columns(export.InferFields(rows)...)
	}
	vm := ViewModel{
		Domain:      def.Code,
		Title:       def.Name,
		Description: def.Description,
		Columns:     columns,
		Rows:        page.Items,
		Page: PageInfo{
			Page:      page.Page,
			PageSize:  page.PageSize,
			PageCount: page.PageCount,
			Total:     page.Total,
			HasNext:   page.HasNext(),
			HasPrev:   page.HasPrev(),
		},
		Summary:   st.Summary,
		Periods:   def.Periods,
		Query:     st.Query,
		Status:    st.Status,
		Warnings:  st.Warnings,
		Version:   st.Version,
		UpdatedAt: st.UpdatedAt,
	}
	if vm.Rows == nil {
		vm.Rows = []records.Record{}
	}
	for _, a := range def.Actions {
		vm.Actions = append(vm.Actions, a.Name)
	}

	vm.GroupField = st.Query.GroupBy
	if vm.GroupField == "" {
		vm.GroupField = def.GroupField
	}
	if vm.GroupField != "" {
		vm.Groups = groupViews(def, rows, vm.GroupField)
	}

	primary := def.PrimarySlice()
	for _, s := range def.Slices {
		if s.Name == primary || (s.Kind != "" && s.Kind != viewstate.KindRecords) {
			continue
		}
		if vm.Related == nil {
			vm.Related = map[string][]records.Record{}
		}
		vm.Related[s.Name] = st.Slices[s.Name]
	}

	vm.Categories = categoryTotals(def, st)
	vm.Charts = deriveCharts(def, st, vm.Categories, vp, radius)
	return vm
}

func groupViews(def DomainDefinition, rows []records.Record, field string) []GroupView {
	var opts []records.GroupOption
	if field == def.GroupField || field == def.categoryField() {
		opts = append(opts, records.WithPriority(def.PriorityOrder...))
	}
	severity := def.SeverityField
	if severity != "" && severity != field {
		opts = append(opts, records.WithCounts(records.StringKey(severity, unknownGroup)))
	}
	groups := records.GroupBy(rows, records.StringKey(field, unknownGroup), opts...)
	out := make([]GroupView, 0, groups.Len())
	for _, g := range groups.List() {
		view := GroupView{Key: g.Key, Count: g.Len(), Records: g.Records}
		if len(g.CountKeys) > 0 {
			keys := priorityKeys(g.CountKeys, def.PriorityOrder)
			for _, k := range keys {
				view.Counts = append(view.Counts, records.Tally{Key: k, Count: g.Counts[k]})
			}
		}
		out = append(out, view)
	}
	return out
}

// priorityKeys orders keys by priority, unknown keys last in their given order.
func priorityKeys(keys, priority []string) []string {
	if len(priority) == 0 {
		return keys
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	for _, k := range priority {
		if present[k] {
			out = append(out, k)
			delete(present, k)
		}
	}
	for _, k := range keys {
		if present[k] {
			out = append(out, k)
		}
	}
	return out
}

// categoryTotals picks the domain's category contract: pre-aggregated totals
// from the backend, or counts recomputed from every primary record.
func categoryTotals(def DomainDefinition, st viewstate.State) []geometry.CategoryTotal {
	if def.CategorySource != CategoriesFromRecords {
		return st.Categories[def.categorySlice()]
	}
	field := def.categoryField()
	if field == "" {
		return nil
	}
	tallies := records.Count(st.Slices[def.PrimarySlice()], records.StringKey(field, unknownGroup), def.PriorityOrder...)
	out := make([]geometry.CategoryTotal, len(tallies))
	for i, t := range tallies {
		out[i] = geometry.CategoryTotal{Category: t.Key, Count: float64(t.Count)}
	}
	return out
}

func deriveCharts(def DomainDefinition, st viewstate.State, cats []geometry.CategoryTotal, vp geometry.Viewport, radius float64) Charts {
	var charts Charts
	for _, name := range trendOrder(def) {
		points := st.Series[name]
		if len(points) == 0 {
			continue
		}
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		charts.Trends = append(charts.Trends, TrendChart{
			Name:      name,
			Points:    points,
			Line:      geometry.LinePath(points, vp),
			Area:      geometry.AreaPath(points, vp),
			Sparkline: geometry.Sparkline(values, sparklineWidth, sparklineHeight),
			Max:       geometry.MaxValue(points),
			Viewport:  vp,
		})
	}
	if len(cats) == 0 {
		return charts
	}

	donut := &DonutChart{
		Name:          def.categorySlice(),
		Radius:        radius,
		Circumference: geometry.Circumference(radius),
	}
	if total := normalize.Float(st.Summary, def.TotalField, 0); def.TotalField != "" && total > 0 {
		donut.Total = total
		donut.Segments = geometry.DonutSegments(cats, radius, geometry.WithTotal(total))
	} else {
		donut.Relative = true
		donut.Segments = geometry.DonutSegments(cats, radius, geometry.Relative())
		for _, c := range cats {
			donut.Total += max(c.Count, 0)
		}
	}
	charts.Donut = donut

	labels := make([]string, len(cats))
	values := make([]float64, len(cats))
	for i, c := range cats {
		labels[i] = c.Category
		values[i] = c.Count
	}
	charts.Bars = &BarChart{
		Name:     def.categorySlice(),
		Labels:   labels,
		Bars:     geometry.Bars(values, vp, barGap),
		Viewport: vp,
	}
	return charts
}

// trendOrder lists series slices with the domain's trend slice first.
func trendOrder(def DomainDefinition) []string {
	var out []string
	if def.TrendSlice != "" {
		out = append(out, def.TrendSlice)
	}
	for _, s := range def.Slices {
		if s.Kind == viewstate.KindSeries && s.Name != def.TrendSlice {
			out = append(out, s.Name)
		}
	}
	return out
}
