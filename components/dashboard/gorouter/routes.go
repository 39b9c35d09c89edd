package gorouter

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	router "github.com/goliatone/go-router"
	"golang.org/x/text/language"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/commands"
	"github.com/goliatone/go-insights/components/dashboard/httpapi"
	"github.com/goliatone/go-insights/components/dashboard/queries"
	"github.com/goliatone/go-insights/pkg/export"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the insights executor, page renderer and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	API            httpapi.Executor
	Pages          *dashboard.PageRenderer
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for insights endpoints.
type RouteConfig struct {
	Domains            string
	Sessions           string
	Session            string
	Page               string
	Table              string
	Query              string
	Refresh            string
	Action             string
	Record             string
	Export             string
	SessionPreferences string
	Preferences        string
	WebSocket          string
}

// queryKeys are the URL parameters ParseQueryRequest understands.
var queryKeys = []string{"filter", "search", "sort", "dir", "page", "page_size", "period", "group"}

// Register mounts insights routes (HTML, JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: executor is required")
	}
	routes := cfg.routes()
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	viewerResolver := cfg.ViewerResolver
	if viewerResolver == nil {
		viewerResolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)
	registerAPI(group, cfg.API, viewerResolver, routes)

	if cfg.Pages != nil {
		registerPages(group, cfg.API, cfg.Pages, viewerResolver, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Domains, router.WrapHandler(func(ctx router.Context) error {
		domains, err := api.Domains(ctx.Context(), resolver(ctx))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, domains)
	}))

	r.Post(routes.Sessions, router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.MountPayload
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		if payload.Domain == "" {
			return respondError(ctx, errors.Join(httpapi.ErrInvalidBody, errors.New("domain is required")))
		}
		sess, err := api.Mount(ctx.Context(), dashboard.MountRequest{
			Domain: payload.Domain,
			Viewer: resolver(ctx),
			Config: payload.Config,
			Live:   payload.Live,
		})
		if err != nil {
			return respondError(ctx, err)
		}
		vm, err := api.View(ctx.Context(), queries.DashboardViewInput{SessionID: sess.ID})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, httpapi.MountResponse{Session: sess, View: vm})
	}))

	r.Get(routes.Session, router.WrapHandler(func(ctx router.Context) error {
		vm, err := api.View(ctx.Context(), queries.DashboardViewInput{
			SessionID: ctx.Param("id"),
			Query:     httpapi.ParseQueryRequest(queryValues(ctx)),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, vm)
	}))

	r.Delete(routes.Session, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Unmount(ctx.Context(), ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusNoContent, map[string]string{"status": "unmounted"})
	}))

	r.Post(routes.Query, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.QueryRequest
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		vm, err := api.View(ctx.Context(), queries.DashboardViewInput{SessionID: ctx.Param("id"), Query: &payload})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, vm)
	}))

	r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RefreshDashboardInput
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		payload.SessionID = ctx.Param("id")
		if err := api.Refresh(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "refreshed"})
	}))

	r.Post(routes.Action, router.WrapHandler(func(ctx router.Context) error {
		result, err := httpapi.Dispatch(ctx.Context(), api, ctx.Param("id"), ctx.Param("action"), ctx.Body())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"status": "ok", "result": result})
	}))

	r.Get(routes.Record, router.WrapHandler(func(ctx router.Context) error {
		record, err := api.DrillDown(ctx.Context(), ctx.Param("id"), ctx.Param("record"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, record)
	}))

	r.Get(routes.Export, router.WrapHandler(func(ctx router.Context) error {
		format, err := export.ParseFormat(ctx.Query("format"))
		if err != nil {
			return respondError(ctx, err)
		}
		id := ctx.Param("id")
		sess, err := api.Session(id)
		if err != nil {
			return respondError(ctx, err)
		}
		var buf bytes.Buffer
		if err := api.Export(ctx.Context(), id, &buf, format); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", format.ContentType())
		ctx.SetHeader("Content-Disposition", httpapi.ContentDisposition(sess.Domain, format))
		return ctx.Send(buf.Bytes())
	}))

	r.Post(routes.SessionPreferences, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Preferences(ctx.Context(), commands.SavePreferencesInput{SessionID: ctx.Param("id")}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
	}))

	r.Post(routes.Preferences, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SavePreferencesInput
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		payload.SessionID = ""
		payload.Viewer = resolver(ctx)
		if err := api.Preferences(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
	}))
}

func registerPages[T any](r router.Router[T], api httpapi.Executor, pages *dashboard.PageRenderer, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Page, router.WrapHandler(func(ctx router.Context) error {
		vm, err := api.View(ctx.Context(), queries.DashboardViewInput{
			SessionID: ctx.Param("id"),
			Query:     httpapi.ParseQueryRequest(queryValues(ctx)),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		var buf bytes.Buffer
		if err := pages.RenderPage(vm, resolver(ctx), &buf); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	r.Get(routes.Table, router.WrapHandler(func(ctx router.Context) error {
		vm, err := api.View(ctx.Context(), queries.DashboardViewInput{
			SessionID: ctx.Param("id"),
			Query:     httpapi.ParseQueryRequest(queryValues(ctx)),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		var buf bytes.Buffer
		if err := pages.RenderTable(vm, &buf); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))
}

// registerWebSocket streams every view event. Clients filter by domain; the
// net/http BroadcastHook.ServeWebSocket handler filters server side.
func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe("")
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// queryValues collects the single-valued query parameters of ctx. Repeated
// filters need the JSON query endpoint.
func queryValues(ctx router.Context) url.Values {
	values := url.Values{}
	for _, key := range queryKeys {
		if v := ctx.Query(key); v != "" {
			values.Set(key, v)
		}
	}
	return values
}

func defaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if v, ok := ctx.Locals("tenant_id").(string); ok {
		viewer.TenantID = v
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Param("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		if lang := parseAcceptLanguage(header); lang != "" {
			return lang
		}
	}
	return ""
}

// parseAcceptLanguage returns the highest weighted tag of header.
func parseAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err == nil && len(tags) > 0 {
		return strings.ToLower(tags[0].String())
	}
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" && token != "*" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.Status(err), map[string]string{"error": err.Error()})
}

func (cfg Config[T]) routes() RouteConfig {
	routes := defaultRouteConfig(cfg.Routes)
	return routes
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Domains == "" {
		routes.Domains = "/insights/domains"
	}
	if routes.Sessions == "" {
		routes.Sessions = "/insights/sessions"
	}
	if routes.Session == "" {
		routes.Session = "/insights/sessions/:id"
	}
	if routes.Page == "" {
		routes.Page = "/insights/sessions/:id/page"
	}
	if routes.Table == "" {
		routes.Table = "/insights/sessions/:id/table"
	}
	if routes.Query == "" {
		routes.Query = "/insights/sessions/:id/query"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/insights/sessions/:id/refresh"
	}
	if routes.Action == "" {
		routes.Action = "/insights/sessions/:id/actions/:action"
	}
	if routes.Record == "" {
		routes.Record = "/insights/sessions/:id/records/:record"
	}
	if routes.Export == "" {
		routes.Export = "/insights/sessions/:id/export"
	}
	if routes.SessionPreferences == "" {
		routes.SessionPreferences = "/insights/sessions/:id/preferences"
	}
	if routes.Preferences == "" {
		routes.Preferences = "/insights/preferences"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/insights/ws"
	}
	return routes
}
