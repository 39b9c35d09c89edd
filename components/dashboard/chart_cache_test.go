package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChartKey = ChartKey{Domain: DomainCodeQuality, Chart: "trend:trends", Theme: "westeros", Version: 1, Digest: "d1"}

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender(testChartKey, render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender(testChartKey, render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpires(t *testing.T) {
	clk := clock.NewMock()
	cache := NewChartCacheWithClock(time.Minute, clk)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender(testChartKey, render)
	require.NoError(t, err)
	clk.Add(2 * time.Minute)
	_, err = cache.GetOrRender(testChartKey, render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender(testChartKey, func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestContentHashIsDeterministic(t *testing.T) {
	a := contentHash(map[string]any{"b": 2, "a": 1})
	b := contentHash(map[string]any{"a": 1, "b": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, contentHash(map[string]any{"a": 2}))
}

func TestChartCacheKeepsNewestVersionPerSlot(t *testing.T) {
	cache := NewChartCache(time.Minute)
	render := func(html string) func() (string, error) {
		return func() (string, error) { return html, nil }
	}

	v2 := testChartKey
	v2.Version, v2.Digest = 2, "d2"
	_, err := cache.GetOrRender(v2, render("v2"))
	require.NoError(t, err)

	html, err := cache.GetOrRender(testChartKey, render("v1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", html, "an older version renders fresh")

	html, err = cache.GetOrRender(v2, render("unused"))
	require.NoError(t, err)
	assert.Equal(t, "v2", html, "the older rendering does not evict the newer one")
	assert.Equal(t, 1, cache.Len())

	v3 := testChartKey
	v3.Version, v3.Digest = 3, "d3"
	_, err = cache.GetOrRender(v3, render("v3"))
	require.NoError(t, err)
	html, err = cache.GetOrRender(v2, render("v2 again"))
	require.NoError(t, err)
	if html != "v2 again" {
		t.Fatalf("expected version 2 to be evicted, got %q", html)
	}
}

func TestChartCacheRequiresMatchingDigest(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender(testChartKey, func() (string, error) { return "a", nil })
	require.NoError(t, err)

	other := testChartKey
	other.Digest = "d-other"
	html, err := cache.GetOrRender(other, func() (string, error) { return "b", nil })
	require.NoError(t, err)
	assert.Equal(t, "b", html)
}
