package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/code-quality/priorities" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("expected auth header, got %s", got)
		}
		if got := r.URL.Query().Get("period"); got != "30d" {
			t.Fatalf("expected period param, got %q", got)
		}
		_, _ = w.Write([]byte(`{"priorities":[{"path":"main.go","score":8.5}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw, err := client.Fetch(context.Background(), "/api/code-quality/priorities", url.Values{"period": {"30d"}})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload %#v", raw)
	}
	items, _ := payload["priorities"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one priority, got %#v", payload)
	}
}

func TestHTTPClientPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected json content type, got %s", ct)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["pattern_id"] != "p-1" {
			t.Fatalf("unexpected body %#v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)
	out, err := client.Post(context.Background(), "api/log-patterns/feedback", map[string]any{"pattern_id": "p-1"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestHTTPClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine offline", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "/api/performance/summary", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "engine offline", statusErr.Body)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Contains(t, err.Error(), "/api/performance/summary")
}

func TestHTTPClientDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken"`))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "/x", nil)
	assert.Error(t, err)
}

func TestHTTPClientHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Fetch(ctx, "/slow", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{})
	assert.Error(t, err)
}

func TestMockClient(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockClient(MockData{
		Responses: map[string]any{"/summary": map[string]any{"total": 3}},
		Errors:    map[string]error{"/broken": boom},
	})
	ctx := context.Background()

	raw, err := mock.Fetch(ctx, "/summary", url.Values{"period": {"7d"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"total": 3.0}, raw)

	raw.(map[string]any)["total"] = 99.0
	again, _ := mock.Fetch(ctx, "/summary", nil)
	assert.Equal(t, 3.0, again.(map[string]any)["total"])

	_, err = mock.Fetch(ctx, "/broken", nil)
	assert.ErrorIs(t, err, boom)
	_, err = mock.Fetch(ctx, "/missing", nil)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	out, err := mock.Post(ctx, "/feedback", map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Nil(t, out)

	mock.SetResponse("/broken", []any{})
	_, err = mock.Fetch(ctx, "/broken", nil)
	assert.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "7d", calls[0].Params.Get("period"))
	assert.Equal(t, http.MethodPost, calls[4].Method)
}
