package viewstate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
)

func newTestStore(mock *clock.Mock) *Store {
	return NewStore(StoreOptions{
		Clock: mock,
		Slices: map[string]SliceSpec{
			"risks": {
				KeyFields: []string{"path"},
				Shape:     normalize.ShapeHint{Key: "priorities", Defaults: map[string]any{"severity": "low"}},
				Entities:  []string{"file_risk"},
			},
			"summary":    {Kind: KindSummary, Shape: normalize.ShapeHint{Defaults: map[string]any{"total": 0}}},
			"trend":      {Kind: KindSeries, Shape: normalize.ShapeHint{Key: "trends"}},
			"severities": {Kind: KindCategories, CategoryOrder: []string{"critical", "high", "medium", "low"}, Entities: []string{"severity"}},
		},
	})
}

func message(t *testing.T, typ string, data any) live.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return live.Message{Type: typ, Data: raw}
}

func TestSnapshotReplacesWholeState(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.ReplaceSlice("risks", []records.Record{{"path": "old.go"}})
	store.SetSeries("trend", []geometry.SeriesPoint{{Timestamp: "x", Value: 1}})
	store.SetQuery(Query{Page: 3, PageSize: 10})

	err := store.HandleMessage(context.Background(), message(t, "snapshot", map[string]any{
		"risks":      map[string]any{"priorities": []any{map[string]any{"path": "a.go"}, map[string]any{"path": "b.go", "severity": "high"}}},
		"summary":    map[string]any{"total": "2"},
		"severities": map[string]any{"high": 1, "low": 1},
	}))
	require.NoError(t, err)

	st := store.State()
	require.Len(t, st.Slices["risks"], 2)
	assert.Equal(t, "low", st.Slices["risks"][0]["severity"])
	assert.Equal(t, 2, st.Summary["total"])
	assert.Empty(t, st.Series["trend"])
	assert.Equal(t, []geometry.CategoryTotal{{Category: "high", Count: 1}, {Category: "low", Count: 1}}, st.Categories["severities"])
	assert.Equal(t, 3, st.Query.Page)
}

func TestSnapshotWinsOverEarlierUpdates(t *testing.T) {
	store := newTestStore(clock.NewMock())
	ctx := context.Background()

	require.NoError(t, store.HandleMessage(ctx, message(t, "risk_update", map[string]any{"path": "a.go", "score": 9})))
	require.NoError(t, store.HandleMessage(ctx, live.Message{Type: "snapshot", Slice: "risks", Data: json.RawMessage(`[{"path":"z.go"}]`)}))

	got := store.Records("risks")
	require.Len(t, got, 1)
	assert.Equal(t, "z.go", got[0]["path"])
}

func TestUpdateMergesByIdentityAndAppendsOnMiss(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.ReplaceSlice("risks", []records.Record{
		{"path": "a.go", "score": 1.0, "owner": "ana"},
		{"path": "b.go", "score": 2.0},
	})
	ctx := context.Background()

	require.NoError(t, store.HandleMessage(ctx, message(t, "risk_update", map[string]any{"path": "a.go", "score": 7})))
	require.NoError(t, store.HandleMessage(ctx, message(t, "file_risk_update", []any{map[string]any{"path": "c.go"}})))

	got := store.Records("risks")
	require.Len(t, got, 3)
	assert.Equal(t, 7.0, got[0]["score"])
	assert.Equal(t, "ana", got[0]["owner"])
	assert.Equal(t, "c.go", got[2]["path"])
	assert.Equal(t, "low", got[2]["severity"])
}

func TestUpdateSummarySeriesAndCategories(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.SetSummary(records.Record{"total": 4, "average": 2.5})
	store.SetSeries("trend", []geometry.SeriesPoint{{Timestamp: "d1", Value: 1}, {Timestamp: "d2", Value: 2}})
	store.SetCategories("severities", []geometry.CategoryTotal{{Category: "high", Count: 2}})
	ctx := context.Background()

	require.NoError(t, store.HandleMessage(ctx, live.Message{Type: "summary_update", Data: json.RawMessage(`{"total":5}`)}))
	require.NoError(t, store.HandleMessage(ctx, live.Message{Type: "trend_update", Data: json.RawMessage(`{"timestamp":"d2","value":3}`)}))
	require.NoError(t, store.HandleMessage(ctx, live.Message{Type: "point_update", Slice: "trend", Data: json.RawMessage(`[{"timestamp":"d3","value":4}]`)}))
	require.NoError(t, store.HandleMessage(ctx, live.Message{Type: "severity_update", Data: json.RawMessage(`{"high":3,"low":1}`)}))

	st := store.State()
	assert.Equal(t, 5.0, st.Summary["total"])
	assert.Equal(t, 2.5, st.Summary["average"])
	assert.Equal(t, []float64{1, 3, 4}, values(st.Series["trend"]))
	assert.Equal(t, []geometry.CategoryTotal{{Category: "high", Count: 3}, {Category: "low", Count: 1}}, st.Categories["severities"])
}

func TestHandleMessageErrors(t *testing.T) {
	store := newTestStore(clock.NewMock())
	ctx := context.Background()

	assert.NoError(t, store.HandleMessage(ctx, live.Message{Type: "pong"}))
	assert.ErrorIs(t, store.HandleMessage(ctx, live.Message{Type: "progress"}), ErrUnsupportedMessage)
	assert.ErrorIs(t, store.HandleMessage(ctx, live.Message{Type: "widget_update", Data: json.RawMessage(`{}`)}), ErrUnknownSlice)
	assert.ErrorIs(t, store.HandleMessage(ctx, live.Message{Type: "snapshot", Slice: "nope", Data: json.RawMessage(`[]`)}), ErrUnknownSlice)
	assert.Error(t, store.HandleMessage(ctx, live.Message{Type: "snapshot", Data: json.RawMessage(`[1]`)}))
	assert.Error(t, store.HandleMessage(ctx, live.Message{Type: "risk_update", Data: json.RawMessage(`{`)}))
}

func TestObserveReceivesCopiesAndCancels(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store := newTestStore(mock)

	var seen []State
	cancel := store.Observe(func(st State) { seen = append(seen, st) })
	store.SetStatus(live.StatusLive)
	store.ReplaceSlice("risks", []records.Record{{"path": "a.go"}})
	cancel()

	require.Len(t, seen, 2)
	assert.Equal(t, live.StatusLive, seen[0].Status)
	assert.Equal(t, uint64(1), seen[0].Version)
	assert.Equal(t, uint64(2), seen[1].Version)
	assert.Equal(t, mock.Now(), seen[1].UpdatedAt)

	seen[1].Slices["risks"][0]["path"] = "mutated"
	assert.Equal(t, "a.go", store.Records("risks")[0]["path"])

	store.ReplaceSlice("risks", nil)
	assert.Len(t, seen, 2)
	assert.Equal(t, uint64(3), store.State().Version)
}

func TestWarnings(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.AddWarning("risks", "timeout")
	store.AddWarning("trend", "500")
	store.AddWarning("risks", "refused")

	st := store.State()
	require.Len(t, st.Warnings, 2)
	assert.Equal(t, "trend", st.Warnings[0].Slice)
	assert.Equal(t, "refused", st.Warnings[1].Message)

	store.ClearWarnings("trend")
	assert.Len(t, store.State().Warnings, 1)
	store.ClearWarnings()
	assert.Empty(t, store.State().Warnings)
}

func TestApplyBatchNotifiesOnce(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.AddWarning("trend", "timeout")

	var seen []State
	cancel := store.Observe(func(st State) { seen = append(seen, st) })
	defer cancel()

	err := store.ApplyBatch([]SliceUpdate{
		{Name: "risks", Replace: true, Raw: map[string]any{"priorities": []any{map[string]any{"path": "a.go"}}}, ClearWarning: true},
		{Name: "summary", Replace: true, Raw: map[string]any{"total": 1}, ClearWarning: true},
		{Name: "trend", Replace: true, Raw: map[string]any{"trends": []any{map[string]any{"timestamp": "t1", "value": 3}}}, ClearWarning: true},
		{Name: "severities", Warning: "backend returned 503"},
		{Name: "missing", Replace: true, Raw: []any{}},
	})
	require.ErrorIs(t, err, ErrUnknownSlice)

	if len(seen) != 1 {
		t.Fatalf("expected one notification for the batch, got %d", len(seen))
	}
	st := seen[0]
	require.Len(t, st.Slices["risks"], 1)
	assert.Equal(t, 1, st.Summary["total"])
	assert.Len(t, st.Series["trend"], 1)
	require.Len(t, st.Warnings, 1)
	assert.Equal(t, "severities", st.Warnings[0].Slice)
	assert.Equal(t, store.State().Version, st.Version)
}

func TestApplyBatchKeepsDataWithoutReplace(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.ReplaceSlice("risks", []records.Record{{"path": "kept.go"}})
	version := store.State().Version

	require.NoError(t, store.ApplyBatch([]SliceUpdate{{Name: "risks", Warning: "refused"}}))
	st := store.State()
	assert.Equal(t, version+1, st.Version)
	assert.Equal(t, "kept.go", st.Slices["risks"][0]["path"])
	require.Len(t, st.Warnings, 1)

	require.NoError(t, store.ApplyBatch(nil))
	assert.Equal(t, version+1, store.State().Version, "an empty batch is not a change")
}

func TestResetKeepsQuery(t *testing.T) {
	store := newTestStore(clock.NewMock())
	store.SetQuery(Query{Search: "auth"})
	store.ReplaceSlice("risks", []records.Record{{"path": "a.go"}})
	store.Reset()

	st := store.State()
	assert.Empty(t, st.Slices)
	assert.Equal(t, "auth", st.Query.Search)
}

func TestQueryPredicates(t *testing.T) {
	q := Query{Filters: map[string][]string{"severity": {"high"}, "area": nil}, Search: " auth "}
	list := []records.Record{
		{"severity": "high", "path": "auth/login.go"},
		{"severity": "high", "path": "billing.go"},
		{"severity": "low", "path": "auth/session.go"},
	}
	got := records.Filter(list, q.Predicates([]string{"path"})...)
	require.Len(t, got, 1)
	assert.Equal(t, "auth/login.go", got[0]["path"])
	assert.Len(t, q.Predicates(nil), 1)
}

func TestUpdateQueryReturnsCopy(t *testing.T) {
	store := newTestStore(clock.NewMock())
	q := store.UpdateQuery(func(q *Query) {
		q.Filters = map[string][]string{"severity": {"high"}}
	})
	q.Filters["severity"][0] = "low"
	assert.Equal(t, []string{"high"}, store.Query().Filters["severity"])
}

func values(points []geometry.SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
