package analytics

import (
	"context"
	"net/url"
)

// Fetcher reads JSON payloads from analytics engine endpoints. Payloads are
// returned decoded but otherwise untouched; shaping them is the caller's job.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params url.Values) (any, error)
}

// Mutator sends user actions (feedback, rule toggles, check installs) to the
// analytics engines. A nil result means the endpoint replied with an empty body.
type Mutator interface {
	Post(ctx context.Context, path string, payload any) (any, error)
}

// Client is a convenience union for backends that serve reads and writes.
type Client interface {
	Fetcher
	Mutator
}
