package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/commands"
	"github.com/goliatone/go-insights/components/dashboard/queries"
	"github.com/goliatone/go-insights/pkg/export"
)

// ViewerResolver extracts the viewer of a request.
type ViewerResolver func(*http.Request) dashboard.ViewerContext

// Handlers exposes HTTP endpoints backed by shared commands.
type Handlers struct {
	API    Executor
	Viewer ViewerResolver
}

// Register mounts every handler on mux under base (for example "/insights").
func (h *Handlers) Register(mux *http.ServeMux, base string) {
	base = strings.TrimSuffix(base, "/")
	mux.HandleFunc("GET "+base+"/domains", h.HandleDomains)
	mux.HandleFunc("POST "+base+"/sessions", h.HandleMount)
	mux.HandleFunc("GET "+base+"/sessions/{id}", h.HandleView)
	mux.HandleFunc("DELETE "+base+"/sessions/{id}", h.HandleUnmount)
	mux.HandleFunc("POST "+base+"/sessions/{id}/query", h.HandleQuery)
	mux.HandleFunc("POST "+base+"/sessions/{id}/refresh", h.HandleRefresh)
	mux.HandleFunc("POST "+base+"/sessions/{id}/actions/{action}", h.HandleAction)
	mux.HandleFunc("GET "+base+"/sessions/{id}/records/{record}", h.HandleDrillDown)
	mux.HandleFunc("GET "+base+"/sessions/{id}/export", h.HandleExport)
	mux.HandleFunc("POST "+base+"/sessions/{id}/preferences", h.HandleSessionPreferences)
	mux.HandleFunc("POST "+base+"/preferences", h.HandlePreferences)
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer == nil {
		return dashboard.ViewerContext{}
	}
	return h.Viewer(r)
}

func (h *Handlers) HandleDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.API.Domains(r.Context(), h.viewer(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domains)
}

func (h *Handlers) HandleMount(w http.ResponseWriter, r *http.Request) {
	var payload MountPayload
	if err := readBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Domain == "" {
		writeError(w, errors.Join(ErrInvalidBody, errors.New("domain is required")))
		return
	}
	sess, err := h.API.Mount(r.Context(), dashboard.MountRequest{
		Domain: payload.Domain,
		Viewer: h.viewer(r),
		Config: payload.Config,
		Live:   payload.Live,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	vm, err := h.API.View(r.Context(), queries.DashboardViewInput{SessionID: sess.ID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MountResponse{Session: sess, View: vm})
}

func (h *Handlers) HandleUnmount(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Unmount(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleView returns the session's view. Query parameters, when present,
// update the session's query first.
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	vm, err := h.API.View(r.Context(), queries.DashboardViewInput{
		SessionID: r.PathValue("id"),
		Query:     ParseQueryRequest(r.URL.Query()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.QueryRequest
	if err := readBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	vm, err := h.API.View(r.Context(), queries.DashboardViewInput{
		SessionID: r.PathValue("id"),
		Query:     &payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshDashboardInput
	if err := readBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.SessionID = r.PathValue("id")
	if err := h.API.Refresh(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}

func (h *Handlers) HandleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.Join(ErrInvalidBody, err))
		return
	}
	result, err := Dispatch(r.Context(), h.API, r.PathValue("id"), r.PathValue("action"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": result})
}

func (h *Handlers) HandleDrillDown(w http.ResponseWriter, r *http.Request) {
	record, err := h.API.DrillDown(r.Context(), r.PathValue("id"), r.PathValue("record"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleExport streams the filtered table in the "format" query parameter
// (json, csv, markdown, yaml).
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	sess, err := h.API.Session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.API.Export(r.Context(), id, &buf, format); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", ContentDisposition(sess.Domain, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) HandleSessionPreferences(w http.ResponseWriter, r *http.Request) {
	input := commands.SavePreferencesInput{SessionID: r.PathValue("id")}
	if err := h.API.Preferences(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handlers) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	var payload commands.SavePreferencesInput
	if err := readBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.SessionID = ""
	payload.Viewer = h.viewer(r)
	if err := h.API.Preferences(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func readBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return DecodeBody(body, dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, Status(err), map[string]string{"error": err.Error()})
}
