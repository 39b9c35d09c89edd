package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-insights/pkg/activity"
	"github.com/goliatone/go-insights/pkg/analytics"
	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

var (
	ErrUnknownDomain  = errors.New("dashboard: unknown domain")
	ErrUnknownSession = errors.New("dashboard: unknown session")
	ErrForbidden      = errors.New("dashboard: viewer cannot access domain")
	ErrServiceClosed  = errors.New("dashboard: service closed")

	errMissingViewer  = errors.New("dashboard: viewer context missing user id")
	errMissingDomain  = errors.New("dashboard: domain code is required")
	errMissingSession = errors.New("dashboard: session id is required")
)

// Authorizer decides which insight domains a viewer may open.
type Authorizer interface {
	CanViewDomain(ctx context.Context, viewer ViewerContext, def DomainDefinition) bool
}

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap implementations without importing internal
// go-insights packages.
type Options struct {
	Registry        DomainRegistry
	Client          analytics.Client
	Fallback        FallbackPolicy
	Dialer          live.Dialer
	StreamBaseURL   string
	Authorizer      Authorizer
	PreferenceStore PreferenceStore
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	Translator      TranslationService
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	Logger          *zap.Logger
	Clock           clock.Clock
	Viewport        geometry.Viewport
	// Locale is used for collation when the viewer has none.
	Locale            string
	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration
}

// Service mounts one Controller per dashboard session and routes user
// operations to it.
type Service struct {
	opts     Options
	activity *activity.Emitter
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Authorizer == nil {
		opts.Authorizer = allowAllAuthorizer{}
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// Session is one mounted dashboard.
type Session struct {
	ID        string        `json:"id"`
	Domain    string        `json:"domain"`
	Viewer    ViewerContext `json:"viewer"`
	Live      bool          `json:"live"`
	MountedAt time.Time     `json:"mounted_at"`

	controller  *Controller
	stopObserve func()
}

// Controller returns the session's controller.
func (s *Session) Controller() *Controller {
	return s.controller
}

// MountRequest opens a dashboard for a viewer.
type MountRequest struct {
	Domain string        `json:"domain"`
	Viewer ViewerContext `json:"viewer"`
	// Config is validated against the domain schema and seeds the query.
	Config map[string]any `json:"config,omitempty"`
	// Live subscribes to the domain stream, when the domain has one.
	Live bool `json:"live,omitempty"`
}

// Mount validates the request, loads every slice and optionally subscribes to
// live updates. Slice failures do not fail the mount; they surface as warnings.
func (s *Service) Mount(ctx context.Context, req MountRequest) (*Session, error) {
	if req.Domain == "" {
		return nil, errMissingDomain
	}
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	def, ok := s.opts.Registry.Domain(req.Domain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, req.Domain)
	}
	if !s.opts.Authorizer.CanViewDomain(ctx, req.Viewer, def) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, def.Code)
	}
	if err := s.opts.ConfigValidator.Validate(def, req.Config); err != nil {
		return nil, err
	}
	prefs, err := s.opts.PreferenceStore.Preferences(ctx, req.Viewer, def.Code)
	if err != nil {
		return nil, fmt.Errorf("dashboard: load preferences: %w", err)
	}
	locale := req.Viewer.Locale
	if locale == "" {
		locale = s.opts.Locale
	}
	ctrl, err := NewController(ControllerOptions{
		Definition:        def,
		Client:            s.opts.Client,
		Fallback:          s.opts.Fallback,
		StreamBaseURL:     s.opts.StreamBaseURL,
		Dialer:            s.opts.Dialer,
		ReconnectDelay:    s.opts.ReconnectDelay,
		HeartbeatInterval: s.opts.HeartbeatInterval,
		Clock:             s.opts.Clock,
		Logger:            s.logger,
		Telemetry:         s.opts.Telemetry,
		Viewport:          s.opts.Viewport,
		Locale:            locale,
		Query:             mountQuery(prefs, req.Config),
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		_ = ctrl.Close()
		return nil, err
	}

	sess := &Session{
		ID:          uuid.NewString(),
		Domain:      def.Code,
		Viewer:      req.Viewer,
		MountedAt:   s.opts.Clock.Now().UTC(),
		controller:  ctrl,
		stopObserve: func() {},
	}
	wantLive := req.Live || normalize.Bool(req.Config, "live", false)
	if wantLive && def.Stream != "" {
		sess.stopObserve = ctrl.Observe(func(st viewstate.State) {
			s.notify(context.Background(), sess, "live", st)
		})
		if err := ctrl.Subscribe(); err != nil {
			sess.stopObserve()
			_ = ctrl.Close()
			return nil, err
		}
		sess.Live = true
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.stopObserve()
		_ = ctrl.Close()
		return nil, ErrServiceClosed
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.notify(ctx, sess, "mount", ctrl.State())
	s.opts.Telemetry.Record(ctx, "insights.dashboard.mount", map[string]any{
		"domain":  def.Code,
		"session": sess.ID,
		"viewer":  req.Viewer.UserID,
		"live":    sess.Live,
	})
	return sess, nil
}

// mountQuery layers the mount configuration over saved preferences.
func mountQuery(prefs Preferences, config map[string]any) viewstate.Query {
	q := viewstate.Query{
		Sort:     prefs.Sort,
		PageSize: prefs.PageSize,
		Period:   prefs.Period,
		GroupBy:  prefs.GroupBy,
	}
	if len(prefs.Filters) > 0 {
		q.Filters = map[string][]string{}
		for k, v := range prefs.Filters {
			q.Filters[k] = append([]string(nil), v...)
		}
	}
	if config == nil {
		return q
	}
	q.Period = normalize.String(config, "period", q.Period)
	q.PageSize = normalize.Int(config, "page_size", q.PageSize)
	q.GroupBy = normalize.String(config, "group_by", q.GroupBy)
	q.Search = normalize.String(config, "search", q.Search)
	if filters, ok := config["filters"].(map[string]any); ok {
		if q.Filters == nil {
			q.Filters = map[string][]string{}
		}
		for field := range filters {
			if values := normalize.Strings(filters, field, nil); len(values) > 0 {
				q.Filters[field] = values
			}
		}
	}
	return q
}

// Session returns a mounted session.
func (s *Service) Session(id string) (*Session, error) {
	if id == "" {
		return nil, errMissingSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

// Sessions lists mounted sessions, oldest first.
func (s *Service) Sessions() []*Session {
	s.mu.RLock()
	out := slices.Collect(maps.Values(s.sessions))
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.MountedAt.Compare(b.MountedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Unmount closes a session: fetches are cancelled and its live channel closed.
func (s *Service) Unmount(ctx context.Context, id string) error {
	if id == "" {
		return errMissingSession
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	err := s.teardown(sess)
	s.notify(ctx, sess, "unmount", sess.controller.State())
	s.opts.Telemetry.Record(ctx, "insights.dashboard.unmount", map[string]any{
		"domain":  sess.Domain,
		"session": sess.ID,
	})
	return err
}

func (s *Service) teardown(sess *Session) error {
	sess.stopObserve()
	return sess.controller.Close()
}

// View derives the session's current view model.
func (s *Service) View(ctx context.Context, id string) (ViewModel, error) {
	sess, err := s.Session(id)
	if err != nil {
		return ViewModel{}, err
	}
	vm := s.localize(ctx, sess, sess.controller.View())
	s.opts.Telemetry.Record(ctx, "insights.dashboard.view", map[string]any{
		"domain":  sess.Domain,
		"session": sess.ID,
		"version": vm.Version,
	})
	return vm, nil
}

func (s *Service) localize(ctx context.Context, sess *Session, vm ViewModel) ViewModel {
	locale := sess.Viewer.Locale
	if locale == "" {
		locale = s.opts.Locale
	}
	return localizeView(ctx, s.opts.Translator, sess.controller.Definition(), locale, vm)
}

// QueryRequest updates a session's query. Nil fields are left unchanged.
type QueryRequest struct {
	Filters  map[string][]string `json:"filters,omitempty"`
	Search   *string             `json:"search,omitempty"`
	Sort     string              `json:"sort,omitempty"`
	SortDir  string              `json:"sort_dir,omitempty"`
	Page     int                 `json:"page,omitempty"`
	PageSize int                 `json:"page_size,omitempty"`
	Period   *string             `json:"period,omitempty"`
	GroupBy  *string             `json:"group_by,omitempty"`
}

// ApplyQuery updates the session's query and returns the new view. A period
// change re-fetches every slice.
func (s *Service) ApplyQuery(ctx context.Context, id string, req QueryRequest) (ViewModel, error) {
	sess, err := s.Session(id)
	if err != nil {
		return ViewModel{}, err
	}
	ctrl := sess.controller
	if req.Period != nil && *req.Period != ctrl.Query().Period {
		if err := ctrl.SetPeriod(ctx, *req.Period); err != nil {
			return ViewModel{}, err
		}
	}
	if req.Filters != nil {
		ctrl.SetFilters(req.Filters)
	}
	if req.Search != nil {
		ctrl.SetSearch(*req.Search)
	}
	if req.Sort != "" {
		if req.SortDir == "" {
			ctrl.ToggleSort(req.Sort)
		} else {
			ctrl.SetSort(req.Sort, records.ParseDirection(req.SortDir))
		}
	}
	if req.GroupBy != nil {
		ctrl.SetGroupBy(*req.GroupBy)
	}
	if req.PageSize > 0 {
		ctrl.SetPageSize(req.PageSize)
	}
	if req.Page > 0 {
		ctrl.SetPage(req.Page)
	}
	vm := s.localize(ctx, sess, ctrl.View())
	s.notify(ctx, sess, "query", ctrl.State())
	return vm, nil
}

// Refresh re-fetches the named slices of a session, or all of them.
func (s *Service) Refresh(ctx context.Context, id string, slices ...string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := sess.controller.Refresh(ctx, slices...); err != nil {
		return err
	}
	s.notify(ctx, sess, "refresh", sess.controller.State())
	return nil
}

// RefreshDomain re-fetches every session mounted on domain and returns how
// many were refreshed.
func (s *Service) RefreshDomain(ctx context.Context, domain string) (int, error) {
	var errs []error
	count := 0
	for _, sess := range s.Sessions() {
		if sess.Domain != domain {
			continue
		}
		if err := s.Refresh(ctx, sess.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// ActionRequest performs a domain action from a session.
type ActionRequest struct {
	SessionID string         `json:"session_id"`
	Action    string         `json:"action"`
	TargetID  string         `json:"target_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Perform posts the action, re-fetches affected slices and emits an activity
// event attributed to the context's actor, falling back to the session viewer.
func (s *Service) Perform(ctx context.Context, req ActionRequest) (any, error) {
	sess, err := s.Session(req.SessionID)
	if err != nil {
		return nil, err
	}
	ctrl := sess.controller
	resp, err := ctrl.Perform(ctx, req.Action, req.TargetID, req.Payload)
	if err != nil {
		return nil, err
	}
	def := ctrl.Definition()
	action, _ := def.Action(req.Action)
	s.emitAction(ctx, sess, def, action, req)
	s.notify(ctx, sess, "action", ctrl.State())
	return resp, nil
}

func (s *Service) emitAction(ctx context.Context, sess *Session, def DomainDefinition, action ActionDefinition, req ActionRequest) {
	if !s.activity.Enabled() {
		return
	}
	verb := action.Verb
	if verb == "" {
		verb = def.Code + "." + action.Name
	}
	objectType := action.ObjectType
	if objectType == "" {
		objectType = def.PrimarySlice()
	}
	meta := activityFor(ctx, sess.Viewer)
	metadata := map[string]any{
		"action":  action.Name,
		"session": sess.ID,
	}
	for k, v := range req.Payload {
		if _, taken := metadata[k]; !taken {
			metadata[k] = v
		}
	}
	err := s.activity.Emit(ctx, activity.Event{
		Verb:           verb,
		ActorID:        meta.ActorID,
		UserID:         meta.UserID,
		TenantID:       meta.TenantID,
		ObjectType:     objectType,
		ObjectID:       req.TargetID,
		DefinitionCode: def.Code,
		Metadata:       metadata,
	})
	if err != nil {
		s.logger.Warn("activity emit failed", zap.String("verb", verb), zap.Error(err))
	}
}

// DrillDown returns one record of the session's primary slice.
func (s *Service) DrillDown(ctx context.Context, id, recordID string) (records.Record, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.controller.DrillDown(ctx, recordID)
}

// Export writes the session's filtered view in format.
func (s *Service) Export(ctx context.Context, id string, w io.Writer, format export.Format) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := sess.controller.Export(w, format); err != nil {
		return err
	}
	s.opts.Telemetry.Record(ctx, "insights.dashboard.export", map[string]any{
		"domain":  sess.Domain,
		"session": sess.ID,
		"format":  string(format),
	})
	return nil
}

// SavePreferences persists per-viewer preferences for a domain.
func (s *Service) SavePreferences(ctx context.Context, viewer ViewerContext, domain string, prefs Preferences) error {
	if viewer.UserID == "" {
		return errMissingViewer
	}
	if _, ok := s.opts.Registry.Domain(domain); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	if err := s.opts.PreferenceStore.SavePreferences(ctx, viewer, domain, prefs); err != nil {
		return err
	}
	s.opts.Telemetry.Record(ctx, "insights.preferences.save", map[string]any{
		"domain": domain,
		"viewer": viewer.UserID,
	})
	return nil
}

// SaveSessionPreferences stores the session's current query as the viewer's
// preferences for its domain.
func (s *Service) SaveSessionPreferences(ctx context.Context, id string) (Preferences, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Preferences{}, err
	}
	q := sess.controller.Query()
	prefs := clonePreferences(Preferences{
		Sort:     q.Sort,
		PageSize: q.PageSize,
		Filters:  q.Filters,
		Period:   q.Period,
		GroupBy:  q.GroupBy,
	})
	if err := s.SavePreferences(ctx, sess.Viewer, sess.Domain, prefs); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

// Domains lists the domains the viewer may open.
func (s *Service) Domains(ctx context.Context, viewer ViewerContext) []DomainDefinition {
	var out []DomainDefinition
	for _, def := range s.opts.Registry.Domains() {
		if s.opts.Authorizer.CanViewDomain(ctx, viewer, def) {
			out = append(out, def)
		}
	}
	return out
}

// Registry exposes the domain registry backing the service.
func (s *Service) Registry() DomainRegistry {
	return s.opts.Registry
}

// NotifyViewUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyViewUpdated(ctx context.Context, event ViewEvent) error {
	if err := s.opts.RefreshHook.ViewUpdated(ctx, event); err != nil {
		return err
	}
	s.opts.Telemetry.Record(ctx, "insights.dashboard.event", map[string]any{
		"domain":  event.Domain,
		"session": event.SessionID,
		"reason":  event.Reason,
	})
	return nil
}

func (s *Service) notify(ctx context.Context, sess *Session, reason string, st viewstate.State) {
	event := ViewEvent{
		SessionID: sess.ID,
		Domain:    sess.Domain,
		Reason:    reason,
		Version:   st.Version,
		Status:    st.Status,
		At:        s.opts.Clock.Now().UTC(),
	}
	if err := s.opts.RefreshHook.ViewUpdated(ctx, event); err != nil {
		s.logger.Warn("refresh hook failed",
			zap.String("session", sess.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

// Close unmounts every session. Further mounts fail with ErrServiceClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := s.teardown(sess); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanViewDomain(context.Context, ViewerContext, DomainDefinition) bool {
	return true
}

// RoleAuthorizer allows a domain when the viewer holds one of its roles.
// Domains without an entry are open to everyone.
type RoleAuthorizer map[string][]string

// CanViewDomain checks the viewer's roles against the domain's allow list.
func (a RoleAuthorizer) CanViewDomain(_ context.Context, viewer ViewerContext, def DomainDefinition) bool {
	allowed, ok := a[def.Code]
	if !ok || len(allowed) == 0 {
		return true
	}
	for _, role := range viewer.Roles {
		if slices.Contains(allowed, role) {
			return true
		}
	}
	return false
}

type noopRefreshHook struct{}

func (noopRefreshHook) ViewUpdated(context.Context, ViewEvent) error {
	return nil
}
