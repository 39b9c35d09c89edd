package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-insights/pkg/normalize"
)

const maxErrorBody = 4 << 10

// StatusError reports a non-2xx reply from an analytics endpoint.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analytics: %s %s: remote error %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("analytics: %s %s: remote error %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// HTTPConfig configures the HTTP analytics client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPClient talks to the analytics engines over their REST endpoints.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for a backend rooted at BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("analytics: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("analytics: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
		logger:  logger,
	}, nil
}

// Fetch issues a GET and decodes the JSON reply.
func (c *HTTPClient) Fetch(ctx context.Context, path string, params url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

// Post sends payload as JSON and decodes the reply, which may be empty.
func (c *HTTPClient) Post(ctx context.Context, path string, payload any) (any, error) {
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, payload any) (any, error) {
	target := c.resolve(path, params)
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("analytics: encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("analytics request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analytics: read response: %w", err)
	}
	decoded, err := normalize.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("analytics: %s %s: %w", method, path, err)
	}
	return decoded, nil
}

func (c *HTTPClient) resolve(path string, params url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(params) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + params.Encode()
}
