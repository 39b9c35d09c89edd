package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/commands"
	"github.com/goliatone/go-insights/pkg/analytics"
	"github.com/goliatone/go-insights/pkg/export"
)

// ErrInvalidBody wraps request bodies that are not valid JSON.
var ErrInvalidBody = errors.New("httpapi: invalid request body")

// MountPayload is the body accepted when opening a session. The viewer comes
// from the transport, never from the body.
type MountPayload struct {
	Domain string         `json:"domain"`
	Config map[string]any `json:"config,omitempty"`
	Live   bool           `json:"live,omitempty"`
}

// MountResponse is returned after a successful mount.
type MountResponse struct {
	Session *dashboard.Session  `json:"session"`
	View    dashboard.ViewModel `json:"view"`
}

// Status reports the HTTP status for err.
func Status(err error) int {
	var remote *analytics.StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrUnknownSession),
		errors.Is(err, dashboard.ErrUnknownDomain),
		errors.Is(err, dashboard.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, dashboard.ErrInvalidConfig),
		errors.Is(err, dashboard.ErrInvalidPeriod),
		errors.Is(err, dashboard.ErrUnknownAction),
		errors.Is(err, dashboard.ErrNoStream),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, commands.ErrInvalidInput),
		errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, dashboard.ErrServiceClosed),
		errors.Is(err, dashboard.ErrControllerClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeBody unmarshals body into dst. An empty body leaves dst untouched.
func DecodeBody(body []byte, dst any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

type actionEnvelope struct {
	TargetID string         `json:"target_id"`
	Payload  map[string]any `json:"payload"`
}

// Dispatch routes a named action to its command. Actions without a dedicated
// command are performed directly with the body's target_id and payload.
func Dispatch(ctx context.Context, api Executor, sessionID, action string, body []byte) (any, error) {
	var envelope actionEnvelope
	if err := DecodeBody(body, &envelope); err != nil {
		return nil, err
	}
	switch action {
	case commands.FeedbackAction:
		var input commands.RecordFeedbackInput
		if err := DecodeBody(body, &input); err != nil {
			return nil, err
		}
		input.SessionID = sessionID
		return nil, api.Feedback(ctx, input)
	case commands.ToggleRuleAction:
		var input commands.ToggleRuleInput
		if err := DecodeBody(body, &input); err != nil {
			return nil, err
		}
		input.SessionID = sessionID
		if input.RuleID == "" {
			input.RuleID = envelope.TargetID
		}
		return nil, api.ToggleRule(ctx, input)
	case commands.InstallCheckAction, commands.UninstallCheckAction:
		var input commands.InstallCheckInput
		if err := DecodeBody(body, &input); err != nil {
			return nil, err
		}
		input.SessionID = sessionID
		input.Uninstall = action == commands.UninstallCheckAction
		if input.CheckID == "" {
			input.CheckID = envelope.TargetID
		}
		return nil, api.InstallCheck(ctx, input)
	case commands.AnalyzeAction:
		var input commands.TriggerAnalysisInput
		if err := DecodeBody(body, &input); err != nil {
			return nil, err
		}
		input.SessionID = sessionID
		return nil, api.Analyze(ctx, input)
	default:
		return api.Perform(ctx, dashboard.ActionRequest{
			SessionID: sessionID,
			Action:    action,
			TargetID:  envelope.TargetID,
			Payload:   envelope.Payload,
		})
	}
}

// ParseQueryRequest reads a query update from URL parameters. Filters use
// repeated "filter=field:value" pairs. It returns nil when no query parameter
// is present.
func ParseQueryRequest(values url.Values) *dashboard.QueryRequest {
	var req dashboard.QueryRequest
	touched := false
	for _, raw := range values["filter"] {
		field, value, ok := strings.Cut(raw, ":")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			continue
		}
		if req.Filters == nil {
			req.Filters = map[string][]string{}
		}
		if value = strings.TrimSpace(value); value != "" {
			req.Filters[field] = append(req.Filters[field], value)
		} else if _, exists := req.Filters[field]; !exists {
			req.Filters[field] = nil
		}
		touched = true
	}
	if values.Has("search") {
		search := values.Get("search")
		req.Search = &search
		touched = true
	}
	if sort := strings.TrimSpace(values.Get("sort")); sort != "" {
		req.Sort = sort
		req.SortDir = strings.TrimSpace(values.Get("dir"))
		touched = true
	}
	if page := cast.ToInt(values.Get("page")); page > 0 {
		req.Page = page
		touched = true
	}
	if size := cast.ToInt(values.Get("page_size")); size > 0 {
		req.PageSize = size
		touched = true
	}
	if values.Has("period") {
		period := strings.TrimSpace(values.Get("period"))
		req.Period = &period
		touched = true
	}
	if values.Has("group") {
		group := strings.TrimSpace(values.Get("group"))
		req.GroupBy = &group
		touched = true
	}
	if !touched {
		return nil
	}
	return &req
}

// ExportFilename names the download for a session export.
func ExportFilename(domain string, format export.Format) string {
	name := strings.NewReplacer(".", "-", "/", "-", " ", "-").Replace(domain)
	if name == "" {
		name = "insights"
	}
	return name + "." + format.Extension()
}

// ContentDisposition is the attachment header for an export download.
func ContentDisposition(domain string, format export.Format) string {
	return fmt.Sprintf("attachment; filename=%q", ExportFilename(domain, format))
}
