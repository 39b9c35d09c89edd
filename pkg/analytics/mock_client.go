package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
)

// Call is one request observed by MockClient.
type Call struct {
	Method  string
	Path    string
	Params  url.Values
	Payload any
}

// MockData seeds deterministic responses keyed by endpoint path.
type MockData struct {
	Responses map[string]any
	Errors    map[string]error
}

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	mu        sync.RWMutex
	responses map[string]any
	errs      map[string]error
	calls     []Call
}

var _ Client = (*MockClient)(nil)

// NewMockClient builds a mock analytics client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	c := &MockClient{responses: map[string]any{}, errs: map[string]error{}}
	for path, payload := range data.Responses {
		c.responses[path] = payload
	}
	for path, err := range data.Errors {
		c.errs[path] = err
	}
	return c
}

// SetResponse replaces the payload served for path and clears its error.
func (c *MockClient) SetResponse(path string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[path] = payload
	delete(c.errs, path)
}

// SetError makes requests to path fail.
func (c *MockClient) SetError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[path] = err
}

// Calls returns the requests observed so far.
func (c *MockClient) Calls() []Call {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Call(nil), c.calls...)
}

// Fetch returns a copy of the payload configured for path. Unknown paths
// answer 404.
func (c *MockClient) Fetch(ctx context.Context, path string, params url.Values) (any, error) {
	return c.serve(ctx, Call{Method: http.MethodGet, Path: path, Params: params})
}

// Post records the payload and returns the response configured for path, or
// nil when none is set.
func (c *MockClient) Post(ctx context.Context, path string, payload any) (any, error) {
	return c.serve(ctx, Call{Method: http.MethodPost, Path: path, Payload: payload})
}

func (c *MockClient) serve(ctx context.Context, call Call) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	err := c.errs[call.Path]
	payload, ok := c.responses[call.Path]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		if call.Method == http.MethodPost {
			return nil, nil
		}
		return nil, &StatusError{Method: call.Method, Path: call.Path, StatusCode: http.StatusNotFound}
	}
	return clonePayload(payload)
}

// clonePayload round-trips through JSON so callers see the same value types a
// real backend produces and cannot mutate the fixture.
func clonePayload(payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
