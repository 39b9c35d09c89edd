package gorouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	router "github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/httpapi"
	"github.com/goliatone/go-insights/pkg/analytics"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/executor missing")
	}
	err = Register(Config[struct{}]{Router: newMockRouter()})
	if err == nil {
		t.Fatalf("expected error when executor missing")
	}
}

func TestRegisterRoutes(t *testing.T) {
	mock := newMockRouter()
	pages, err := dashboard.NewPageRenderer(dashboard.PageRendererOptions{Renderer: &stubRenderer{}})
	require.NoError(t, err)
	require.NoError(t, Register(Config[struct{}]{
		Router:    mock,
		API:       &httpapi.CommandExecutor{},
		Pages:     pages,
		Broadcast: dashboard.NewBroadcastHook(),
	}))

	for _, key := range []string{
		"GET:/admin/insights/domains",
		"POST:/admin/insights/sessions",
		"GET:/admin/insights/sessions/:id",
		"DELETE:/admin/insights/sessions/:id",
		"POST:/admin/insights/sessions/:id/query",
		"POST:/admin/insights/sessions/:id/refresh",
		"POST:/admin/insights/sessions/:id/actions/:action",
		"GET:/admin/insights/sessions/:id/records/:record",
		"GET:/admin/insights/sessions/:id/export",
		"POST:/admin/insights/sessions/:id/preferences",
		"POST:/admin/insights/preferences",
		"GET:/admin/insights/sessions/:id/page",
		"GET:/admin/insights/sessions/:id/table",
	} {
		assert.Contains(t, mock.routes, key)
	}
	assert.Contains(t, mock.ws, "/admin/insights/ws")
}

func TestRegisterSkipsOptionalRoutes(t *testing.T) {
	mock := newMockRouter()
	require.NoError(t, Register(Config[struct{}]{Router: mock, API: &httpapi.CommandExecutor{}, BasePath: "/ops"}))
	assert.NotContains(t, mock.routes, "GET:/ops/insights/sessions/:id/page")
	assert.Empty(t, mock.ws)
	assert.Contains(t, mock.routes, "GET:/ops/insights/domains")
}

func TestSessionLifecycleThroughRoutes(t *testing.T) {
	client := analytics.NewMockClient(analytics.MockData{
		Responses: dashboard.DemoEndpointPayloads(dashboard.DefaultDomainDefinitions()),
	})
	svc := dashboard.NewService(dashboard.Options{Client: client})
	t.Cleanup(func() { _ = svc.Close() })

	renderer := &stubRenderer{}
	pages, err := dashboard.NewPageRenderer(dashboard.PageRendererOptions{Renderer: renderer})
	require.NoError(t, err)

	mock := newMockRouter()
	require.NoError(t, Register(Config[struct{}]{
		Router: mock,
		API:    httpapi.NewCommandExecutor(svc, nil),
		Pages:  pages,
		ViewerResolver: func(router.Context) dashboard.ViewerContext {
			return dashboard.ViewerContext{UserID: "admin@example.com", Roles: []string{"admin"}, Locale: "en"}
		},
	}))

	mount := newMockContext()
	mount.body = []byte(`{"domain":"insights.log_patterns"}`)
	require.NoError(t, mock.routes["POST:/admin/insights/sessions"](mount))
	require.Equal(t, http.StatusCreated, mount.status, string(mount.body))
	var mounted httpapi.MountResponse
	require.NoError(t, json.Unmarshal(mount.body, &mounted))
	id := mounted.Session.ID
	assert.Equal(t, "admin@example.com", mounted.Session.Viewer.UserID)

	view := newMockContext()
	view.params["id"] = id
	view.query["filter"] = "severity:critical"
	require.NoError(t, mock.routes["GET:/admin/insights/sessions/:id"](view))
	require.Equal(t, http.StatusOK, view.status)
	var vm dashboard.ViewModel
	require.NoError(t, json.Unmarshal(view.body, &vm))
	require.NotEmpty(t, vm.Rows)
	for _, row := range vm.Rows {
		assert.Equal(t, "critical", row["severity"])
	}

	page := newMockContext()
	page.params["id"] = id
	require.NoError(t, mock.routes["GET:/admin/insights/sessions/:id/page"](page))
	assert.Equal(t, "text/html; charset=utf-8", page.headers["Content-Type"])
	assert.Equal(t, "ok", string(page.body))
	assert.Equal(t, dashboard.DefaultPageTemplate, renderer.lastTemplate)

	exp := newMockContext()
	exp.params["id"] = id
	exp.query["format"] = "md"
	require.NoError(t, mock.routes["GET:/admin/insights/sessions/:id/export"](exp))
	assert.Equal(t, "text/markdown; charset=utf-8", exp.headers["Content-Type"])
	assert.Equal(t, `attachment; filename="insights-log_patterns.md"`, exp.headers["Content-Disposition"])
	assert.Contains(t, string(exp.body), "|")

	action := newMockContext()
	action.params["id"] = id
	action.params["action"] = "unknown"
	require.NoError(t, mock.routes["POST:/admin/insights/sessions/:id/actions/:action"](action))
	assert.Equal(t, http.StatusBadRequest, action.status)

	unmount := newMockContext()
	unmount.params["id"] = id
	require.NoError(t, mock.routes["DELETE:/admin/insights/sessions/:id"](unmount))
	assert.Equal(t, http.StatusNoContent, unmount.status)

	missing := newMockContext()
	missing.params["id"] = id
	require.NoError(t, mock.routes["GET:/admin/insights/sessions/:id"](missing))
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestMockContextCarriesRequestContext(t *testing.T) {
	type key struct{}
	mc := newMockContext()
	mc.ctx = context.WithValue(context.Background(), key{}, "viewer-42")

	var rc router.Context = mc
	if got := rc.Context().Value(key{}); got != "viewer-42" {
		t.Fatalf("expected request context value, got %v", got)
	}
}

func TestDefaultViewerResolverReadsLocals(t *testing.T) {
	ctx := newMockContext()
	ctx.locals["user_id"] = "u1"
	ctx.locals["tenant_id"] = "acme"
	ctx.locals["roles"] = []string{"analyst"}
	ctx.locals["locale"] = "es"

	viewer := defaultViewerResolver(ctx)
	assert.Equal(t, dashboard.ViewerContext{UserID: "u1", TenantID: "acme", Roles: []string{"analyst"}, Locale: "es"}, viewer)
}

func TestParseAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"es-MX,en;q=0.8": "es-mx",
		"en;q=0.5, fr":   "fr",
		"de":             "de",
		"":               "",
	}
	for header, want := range cases {
		assert.Equal(t, want, parseAcceptLanguage(header), header)
	}
}

func TestDefaultRouteConfigKeepsOverrides(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Sessions: "/dash/sessions", WebSocket: "/dash/live"})
	assert.Equal(t, "/dash/sessions", routes.Sessions)
	assert.Equal(t, "/dash/live", routes.WebSocket)
	assert.Equal(t, "/insights/sessions/:id/export", routes.Export)
}

// --- Test helpers ---

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	full := m.prefix + path
	m.routes[method+":"+full] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	full := m.prefix + path
	m.ws[full] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

// baseContext supplies the router.Context methods the handlers never call.
// The alias names the embedded field so it does not clash with Context().
type baseContext = router.Context

var _ router.Context = (*mockContext)(nil)

type mockContext struct {
	baseContext
	ctx     context.Context
	headers map[string]string
	body    []byte
	locals  map[any]any
	params  map[string]string
	query   map[string]string
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
		query:   map[string]string{},
	}
}

func (m *mockContext) Context() context.Context {
	return m.ctx
}

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Send(b []byte) error {
	m.status = http.StatusOK
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

type stubRenderer struct {
	calls        int
	lastTemplate string
}

func (s *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	s.calls++
	s.lastTemplate = name
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("ok"))
	}
	return "ok", nil
}
