package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/goliatone/go-insights/pkg/analytics"
	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

const defaultFetchConcurrency = 4

var (
	ErrControllerClosed = errors.New("dashboard: controller closed")
	ErrUnknownAction    = errors.New("dashboard: unknown action")
	ErrRecordNotFound   = errors.New("dashboard: record not found")
	ErrNoStream         = errors.New("dashboard: domain has no stream")
	ErrInvalidPeriod    = errors.New("dashboard: unsupported period")

	errMissingClient   = errors.New("dashboard: analytics client not configured")
	errMissingRecordID = errors.New("dashboard: record id is required")
)

// ControllerOptions configures a Controller for one mounted dashboard.
type ControllerOptions struct {
	Definition DomainDefinition
	Client     analytics.Client
	Fallback   FallbackPolicy
	// StreamBaseURL prefixes relative stream paths, e.g. "wss://insights.example.com".
	StreamBaseURL     string
	Dialer            live.Dialer
	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration
	Clock             clock.Clock
	Logger            *zap.Logger
	Telemetry         Telemetry
	Viewport          geometry.Viewport
	DonutRadius       float64
	// Locale drives text collation when sorting.
	Locale      string
	Query       viewstate.Query
	Concurrency int
}

// Controller composes fetching, streaming and derivation for one insight
// domain. It owns its view state; nothing is shared across dashboards.
type Controller struct {
	def         DomainDefinition
	client      analytics.Client
	fallback    FallbackPolicy
	store       *viewstate.Store
	sorter      records.Sorter
	clock       clock.Clock
	logger      *zap.Logger
	telemetry   Telemetry
	viewport    geometry.Viewport
	radius      float64
	streamBase  string
	dialer      live.Dialer
	reconnect   time.Duration
	heartbeat   time.Duration
	concurrency int

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	channel *live.Channel
	closed  bool
}

// NewController validates the definition and prepares an empty view state
// seeded with the domain's default query.
func NewController(opts ControllerOptions) (*Controller, error) {
	if err := validateDefinition(opts.Definition); err != nil {
		return nil, err
	}
	if opts.Client == nil {
		return nil, errMissingClient
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = geometry.DefaultViewport()
	}
	if opts.DonutRadius <= 0 {
		opts.DonutRadius = defaultDonutRadius
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultFetchConcurrency
	}
	def := opts.Definition
	logger := opts.Logger.With(zap.String("domain", def.Code))
	store := viewstate.NewStore(viewstate.StoreOptions{
		Slices: def.Specs(),
		Clock:  opts.Clock,
		Logger: logger,
	})
	store.SetQuery(initialQuery(def, opts.Query))

	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		def:         def,
		client:      opts.Client,
		fallback:    normalizeFallback(opts.Fallback),
		store:       store,
		sorter:      records.NewSorter(language.Make(opts.Locale)),
		clock:       opts.Clock,
		logger:      logger,
		telemetry:   normalizeTelemetry(opts.Telemetry),
		viewport:    opts.Viewport,
		radius:      opts.DonutRadius,
		streamBase:  strings.TrimRight(opts.StreamBaseURL, "/"),
		dialer:      opts.Dialer,
		reconnect:   opts.ReconnectDelay,
		heartbeat:   opts.HeartbeatInterval,
		concurrency: opts.Concurrency,
		base:        base,
		cancel:      cancel,
	}, nil
}

func initialQuery(def DomainDefinition, q viewstate.Query) viewstate.Query {
	q = q.Clone()
	if q.PageSize <= 0 {
		q.PageSize = def.pageSize()
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort.Field == "" {
		q.Sort = def.DefaultSort
	}
	return q
}

// Definition returns the domain this controller renders.
func (c *Controller) Definition() DomainDefinition {
	return c.def
}

// State returns a copy of the current view state.
func (c *Controller) State() viewstate.State {
	return c.store.State()
}

// Query returns the current query.
func (c *Controller) Query() viewstate.Query {
	return c.store.Query()
}

// Observe registers fn to receive the state after every change.
func (c *Controller) Observe(fn func(viewstate.State)) func() {
	return c.store.Observe(fn)
}

// Load fetches every slice. It is Refresh with no slice filter.
func (c *Controller) Load(ctx context.Context) error {
	return c.Refresh(ctx)
}

type fetchResult struct {
	raw any
	err error
}

// Refresh fetches the named slices, or all of them, concurrently. A failing
// slice falls back on its own and records a warning; only cancellation is
// returned as an error.
func (c *Controller) Refresh(ctx context.Context, slices ...string) error {
	if c.isClosed() {
		return ErrControllerClosed
	}
	ctx, stop := c.scope(ctx)
	defer stop()

	targets := c.targets(slices)
	results := make([]fetchResult, len(targets))
	started := c.clock.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, slice := range targets {
		g.Go(func() error {
			raw, err := c.client.Fetch(gctx, slice.Endpoint, c.params(slice))
			results[i] = fetchResult{raw: raw, err: err}
			return gctx.Err()
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := 0
	updates := make([]viewstate.SliceUpdate, 0, len(targets))
	for i, slice := range targets {
		if results[i].err != nil {
			failed++
		}
		updates = append(updates, c.outcome(ctx, slice, results[i]))
	}
	if err := c.store.ApplyBatch(updates); err != nil {
		c.logger.Warn("apply slices", zap.Error(err))
	}
	c.telemetry.Record(ctx, "insights.dashboard.refresh", map[string]any{
		"domain":  c.def.Code,
		"slices":  len(targets),
		"failed":  failed,
		"elapsed": c.clock.Since(started).String(),
	})
	return nil
}

func (c *Controller) targets(names []string) []SliceDefinition {
	if len(names) == 0 {
		return c.def.Slices
	}
	out := make([]SliceDefinition, 0, len(names))
	for _, s := range c.def.Slices {
		if slices.Contains(names, s.Name) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Controller) params(slice SliceDefinition) url.Values {
	params := url.Values{}
	for k, v := range slice.Params {
		params.Set(k, v)
	}
	if period := c.store.Query().Period; period != "" {
		params.Set("period", period)
	}
	return params
}

// outcome turns one fetch result into a store update. Failures use the
// fallback payload when there is one and keep the current data otherwise.
func (c *Controller) outcome(ctx context.Context, slice SliceDefinition, res fetchResult) viewstate.SliceUpdate {
	if res.err == nil {
		return viewstate.SliceUpdate{Name: slice.Name, Replace: true, Raw: res.raw, ClearWarning: true}
	}
	c.logger.Warn("slice fetch failed, using fallback",
		zap.String("slice", slice.Name),
		zap.String("endpoint", slice.Endpoint),
		zap.Error(res.err),
	)
	c.telemetry.Record(ctx, "insights.slice.fallback", map[string]any{
		"domain": c.def.Code,
		"slice":  slice.Name,
		"error":  res.err.Error(),
	})
	update := viewstate.SliceUpdate{Name: slice.Name}
	if payload := c.fallback.Fallback(ctx, c.def, slice, res.err); payload != nil {
		update.Replace = true
		update.Raw = payload
	}
	if !slice.Optional {
		update.Warning = warningMessage(res.err)
	}
	return update
}

func warningMessage(err error) string {
	var statusErr *analytics.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("backend returned %d", statusErr.StatusCode)
	}
	return err.Error()
}

// Subscribe opens the domain's live channel. Messages are merged into the
// view state in arrival order and the connection status is mirrored into it.
// Calling Subscribe again while a channel is open is a no-op.
func (c *Controller) Subscribe() error {
	if c.def.Stream == "" {
		return ErrNoStream
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.channel != nil {
		c.mu.Unlock()
		return nil
	}
	ch, err := live.NewChannel(live.Options{
		URL:               c.streamURL(),
		Dialer:            c.dialer,
		Handler:           c.store,
		Clock:             c.clock,
		Logger:            c.logger,
		ReconnectDelay:    c.reconnect,
		HeartbeatInterval: c.heartbeat,
		OnStatus:          c.store.SetStatus,
	})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dashboard: subscribe %s: %w", c.def.Code, err)
	}
	c.channel = ch
	c.mu.Unlock()
	return ch.Connect(c.base)
}

func (c *Controller) streamURL() string {
	stream := c.def.Stream
	if strings.Contains(stream, "://") || c.streamBase == "" {
		return stream
	}
	return c.streamBase + "/" + strings.TrimLeft(stream, "/")
}

// Status reports the live connection status.
func (c *Controller) Status() live.Status {
	return c.store.State().Status
}

// SetFilter restricts field to values. No values removes the filter. The page
// resets to 1.
func (c *Controller) SetFilter(field string, values ...string) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		if q.Filters == nil {
			q.Filters = map[string][]string{}
		}
		if len(values) == 0 {
			delete(q.Filters, field)
		} else {
			q.Filters[field] = append([]string(nil), values...)
		}
		q.Page = 1
	})
}

// SetFilters replaces every filter.
func (c *Controller) SetFilters(filters map[string][]string) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Filters = map[string][]string{}
		for field, values := range filters {
			if len(values) > 0 {
				q.Filters[field] = append([]string(nil), values...)
			}
		}
		q.Page = 1
	})
}

// SetSearch sets the free-text search and resets the page.
func (c *Controller) SetSearch(text string) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Search = strings.TrimSpace(text)
		q.Page = 1
	})
}

// ToggleSort selects a sort column: the active column flips direction, a new
// column starts descending.
func (c *Controller) ToggleSort(field string) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Sort = q.Sort.Toggle(field)
	})
}

// SetSort sets column and direction explicitly.
func (c *Controller) SetSort(field string, dir records.Direction) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Sort = records.SortState{Field: field, Direction: dir}
	})
}

// SetPage moves to page. View clamps it into range.
func (c *Controller) SetPage(page int) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Page = max(page, 1)
	})
}

// SetPageSize changes the page size and resets the page.
func (c *Controller) SetPageSize(size int) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.PageSize = max(size, 1)
		q.Page = 1
	})
}

// SetGroupBy changes the grouping field. Empty restores the domain default.
func (c *Controller) SetGroupBy(field string) viewstate.Query {
	return c.store.UpdateQuery(func(q *viewstate.Query) {
		q.GroupBy = field
	})
}

// SetPeriod changes the reporting window and re-fetches every slice.
func (c *Controller) SetPeriod(ctx context.Context, period string) error {
	if period != "" && len(c.def.Periods) > 0 && !slices.Contains(c.def.Periods, period) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	c.store.UpdateQuery(func(q *viewstate.Query) {
		q.Period = period
		q.Page = 1
	})
	return c.Refresh(ctx)
}

// View derives the current view model. A page left out of range by a
// shrinking result set is clamped and written back into the query.
func (c *Controller) View() ViewModel {
	st := c.store.State()
	vm := deriveView(c.def, st, c.sorter, c.viewport, c.radius)
	if vm.Page.Page != st.Query.Page {
		requested := st.Query.Page
		c.store.UpdateQuery(func(q *viewstate.Query) {
			if q.Page == requested {
				q.Page = vm.Page.Page
			}
		})
		vm.Query.Page = vm.Page.Page
	}
	return vm
}

// DrillDown returns the record with identity id, enriched with the domain's
// detail endpoint when it has one.
func (c *Controller) DrillDown(ctx context.Context, id string) (records.Record, error) {
	if id == "" {
		return nil, errMissingRecordID
	}
	primary := c.def.PrimarySlice()
	spec := c.def.Specs()[primary]
	rec, found := records.Find(c.store.Records(primary), spec.Identity(), id)
	if c.def.DetailEndpoint == "" {
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return rec.Clone(), nil
	}

	ctx, stop := c.scope(ctx)
	defer stop()
	endpoint := strings.ReplaceAll(c.def.DetailEndpoint, "{id}", url.PathEscape(id))
	raw, err := c.client.Fetch(ctx, endpoint, c.params(SliceDefinition{}))
	if err != nil {
		if found && ctx.Err() == nil {
			c.logger.Warn("detail fetch failed", zap.String("id", id), zap.Error(err))
			return rec.Clone(), nil
		}
		if analytics.IsStatus(err, 404) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("dashboard: drill down %s: %w", id, err)
	}
	detail := normalize.Summary(raw, normalize.ShapeHint{Key: "detail"})
	c.telemetry.Record(ctx, "insights.dashboard.drilldown", map[string]any{
		"domain": c.def.Code,
		"id":     id,
	})
	return rec.Merge(detail), nil
}

// Perform posts a domain action and re-fetches the slices it affects. The
// target id fills the endpoint's {id} placeholder and is added to the payload
// as "id" when the payload does not carry one.
func (c *Controller) Perform(ctx context.Context, name, id string, payload map[string]any) (any, error) {
	if c.isClosed() {
		return nil, ErrControllerClosed
	}
	action, ok := c.def.Action(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if id == "" && strings.Contains(action.Endpoint, "{id}") {
		return nil, errMissingRecordID
	}
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if _, ok := body["id"]; !ok && id != "" {
		body["id"] = id
	}

	ctx, stop := c.scope(ctx)
	defer stop()
	resp, err := c.client.Post(ctx, action.endpointFor(url.PathEscape(id)), body)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %s %s: %w", c.def.Code, name, err)
	}
	c.telemetry.Record(ctx, "insights.dashboard.action", map[string]any{
		"domain": c.def.Code,
		"action": name,
		"id":     id,
	})
	if err := c.Refresh(ctx, action.Refetch...); err != nil {
		return resp, err
	}
	return resp, nil
}

// ExportTable builds the export table: every filtered, sorted record rather
// than only the current page.
func (c *Controller) ExportTable() export.Table {
	st := c.store.State()
	rows := filterSort(c.def, st, c.sorter)
	columns := c.def.Columns
	if len(columns) == 0 {
		columns = export.Columns(export.InferFields(rows)...)
	}
	cats := map[string][]geometry.CategoryTotal{}
	for name, totals := range st.Categories {
		cats[name] = totals
	}
	if c.def.CategorySource == CategoriesFromRecords {
		if totals := categoryTotals(c.def, st); len(totals) > 0 {
			cats[c.def.categorySlice()] = totals
		}
	}
	return export.Table{
		Title:       c.def.Name,
		Columns:     columns,
		Rows:        rows,
		Summary:     st.Summary,
		Series:      st.Series,
		Categories:  cats,
		GeneratedAt: c.clock.Now().UTC(),
	}
}

// Export writes the current view in format.
func (c *Controller) Export(w io.Writer, format export.Format) error {
	if err := export.Write(w, format, c.ExportTable()); err != nil {
		return fmt.Errorf("dashboard: export %s: %w", c.def.Code, err)
	}
	return nil
}

// Close unmounts the dashboard: in-flight fetches are cancelled and the live
// channel is closed. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	c.cancel()
	if ch != nil {
		return ch.Close()
	}
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// scope derives a context cancelled by either ctx or Close.
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
