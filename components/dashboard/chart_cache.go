package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ChartKey identifies a rendered chart. A slot (domain, chart, theme) holds the
// latest rendering; Digest guards against two views sharing a Version.
type ChartKey struct {
	Domain  string
	Chart   string
	Theme   string
	Version uint64
	Digest  string
}

func (k ChartKey) slot() string {
	return k.Domain + "|" + k.Chart + "|" + k.Theme
}

// RenderCache memoizes rendered chart HTML per view state.
type RenderCache interface {
	GetOrRender(key ChartKey, render func() (string, error)) (string, error)
}

// ChartCache keeps the most recent rendering of each chart slot for a TTL.
// A rendering for an older state version never replaces a newer one.
type ChartCache struct {
	ttl     time.Duration
	clock   clock.Clock
	mu      sync.RWMutex
	entries map[string]cachedChart
}

type cachedChart struct {
	version uint64
	digest  string
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL
// disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return NewChartCacheWithClock(ttl, clock.New())
}

// NewChartCacheWithClock builds a cache that reads time from clk.
func NewChartCacheWithClock(ttl time.Duration, clk clock.Clock) *ChartCache {
	if clk == nil {
		clk = clock.New()
	}
	return &ChartCache{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]cachedChart),
	}
}

// GetOrRender returns the slot's rendering when it matches key, otherwise
// renders and stores a new one.
func (c *ChartCache) GetOrRender(key ChartKey, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Len reports the number of occupied slots, expired ones included until next read.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ChartCache) get(key ChartKey) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	slot := key.slot()
	c.mu.RLock()
	entry, ok := c.entries[slot]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.clock.Now().After(entry.expires) {
		c.mu.Lock()
		if current, ok := c.entries[slot]; ok && current.expires.Equal(entry.expires) {
			delete(c.entries, slot)
		}
		c.mu.Unlock()
		return "", false
	}
	if entry.version != key.Version || entry.digest != key.Digest {
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) set(key ChartKey, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := c.clock.Now()
	slot := key.slot()
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[slot]; ok && current.version > key.Version && !now.After(current.expires) {
		return
	}
	c.entries[slot] = cachedChart{
		version: key.Version,
		digest:  key.Digest,
		html:    html,
		expires: now.Add(c.ttl),
	}
}

// contentHash returns a deterministic hash of the chart input.
func contentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
