package viewstate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/goliatone/go-insights/pkg/geometry"
	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
)

var (
	ErrUnknownSlice       = errors.New("viewstate: unknown slice")
	ErrUnsupportedMessage = errors.New("viewstate: unsupported message")
)

// StoreOptions configures a Store.
type StoreOptions struct {
	Slices map[string]SliceSpec
	Clock  clock.Clock
	Logger *zap.Logger
}

// Store owns the state of one mounted dashboard. Readers take copies; writers
// are serialized.
type Store struct {
	specs  map[string]SliceSpec
	clock  clock.Clock
	logger *zap.Logger

	mu        sync.RWMutex
	state     State
	observers map[int]func(State)
	nextObs   int
}

// NewStore builds an empty store for the given slices.
func NewStore(opts StoreOptions) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	specs := make(map[string]SliceSpec, len(opts.Slices))
	for name, spec := range opts.Slices {
		specs[name] = spec
	}
	return &Store{
		specs:     specs,
		clock:     opts.Clock,
		logger:    opts.Logger,
		state:     emptyState(),
		observers: map[int]func(State){},
	}
}

// Spec returns the definition of a slice.
func (s *Store) Spec(name string) (SliceSpec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

// SliceNames lists the configured slices in sorted order.
func (s *Store) SliceNames() []string {
	return sortedKeys(s.specs)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Records returns a copy of one record slice.
func (s *Store) Records(name string) []records.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return records.Clone(s.state.Slices[name])
}

// Query returns the current query.
func (s *Store) Query() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Query.Clone()
}

// Observe registers fn to receive a copy of the state after every change.
// The returned function removes the observer.
func (s *Store) Observe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// ReplaceSlice swaps a record slice wholesale.
func (s *Store) ReplaceSlice(name string, list []records.Record) {
	s.mutate(func(st *State) {
		st.Slices[name] = records.Clone(list)
	})
}

// MergeRecords shallow-merges updates into a record slice by identity. Records
// with no match, or with no identity at all, are appended.
func (s *Store) MergeRecords(name string, updates []records.Record) {
	spec := s.specs[name]
	s.mutate(func(st *State) {
		st.Slices[name] = mergeByIdentity(st.Slices[name], updates, spec.Identity(), nil)
	})
}

// SetSummary replaces the summary record.
func (s *Store) SetSummary(summary records.Record) {
	s.mutate(func(st *State) {
		st.Summary = summary.Clone()
		if st.Summary == nil {
			st.Summary = records.Record{}
		}
	})
}

// SetSeries replaces a named series.
func (s *Store) SetSeries(name string, points []geometry.SeriesPoint) {
	s.mutate(func(st *State) {
		st.Series[name] = append([]geometry.SeriesPoint{}, points...)
	})
}

// SetCategories replaces a named set of category totals.
func (s *Store) SetCategories(name string, totals []geometry.CategoryTotal) {
	s.mutate(func(st *State) {
		st.Categories[name] = append([]geometry.CategoryTotal{}, totals...)
	})
}

// SetQuery replaces the query.
func (s *Store) SetQuery(q Query) {
	s.mutate(func(st *State) {
		st.Query = q.Clone()
	})
}

// UpdateQuery edits the query in place under the write lock.
func (s *Store) UpdateQuery(fn func(*Query)) Query {
	var out Query
	s.mutate(func(st *State) {
		fn(&st.Query)
		out = st.Query.Clone()
	})
	return out
}

// SetStatus records the live connection status.
func (s *Store) SetStatus(status live.Status) {
	s.mutate(func(st *State) {
		st.Status = status
	})
}

// AddWarning records a non-fatal problem with one slice. A newer warning for
// the same slice replaces the older one.
func (s *Store) AddWarning(slice, message string) {
	now := s.clock.Now()
	s.mutate(func(st *State) {
		addWarning(st, slice, message, now)
	})
}

// ClearWarnings drops warnings for the given slices, or all warnings when none
// are named.
func (s *Store) ClearWarnings(slices ...string) {
	s.mutate(func(st *State) {
		if len(slices) == 0 {
			st.Warnings = nil
			return
		}
		clearWarnings(st, slices...)
	})
}

// Reset discards all loaded data. Query and status are kept.
func (s *Store) Reset() {
	s.mutate(func(st *State) {
		fresh := emptyState()
		fresh.Query = st.Query
		fresh.Status = st.Status
		fresh.Version = st.Version
		*st = fresh
	})
}

// Apply normalizes a raw payload for a slice and replaces it.
func (s *Store) Apply(name string, raw any) error {
	spec, ok := s.specs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSlice, name)
	}
	s.mutate(func(st *State) {
		replaceSlice(st, name, spec, raw)
	})
	return nil
}

// SliceUpdate is the outcome of loading one slice.
type SliceUpdate struct {
	Name string
	// Replace applies Raw to the slice; otherwise its data is kept.
	Replace bool
	Raw     any
	// Warning replaces the slice's warning when set. ClearWarning drops it.
	Warning      string
	ClearWarning bool
}

// ApplyBatch applies every update in a single change, so observers see either
// none or all of a refresh. Updates for unknown slices are skipped and reported.
func (s *Store) ApplyBatch(updates []SliceUpdate) error {
	var errs []error
	known := make([]SliceUpdate, 0, len(updates))
	for _, u := range updates {
		if _, ok := s.specs[u.Name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownSlice, u.Name))
			continue
		}
		known = append(known, u)
	}
	if len(known) == 0 {
		return errors.Join(errs...)
	}
	now := s.clock.Now()
	s.mutate(func(st *State) {
		for _, u := range known {
			if u.Replace {
				replaceSlice(st, u.Name, s.specs[u.Name], u.Raw)
			}
			switch {
			case u.Warning != "":
				addWarning(st, u.Name, u.Warning, now)
			case u.ClearWarning:
				clearWarnings(st, u.Name)
			}
		}
	})
	return errors.Join(errs...)
}

func addWarning(st *State, slice, message string, now time.Time) {
	for i, w := range st.Warnings {
		if w.Slice == slice {
			st.Warnings = append(st.Warnings[:i], st.Warnings[i+1:]...)
			break
		}
	}
	st.Warnings = append(st.Warnings, Warning{Slice: slice, Message: message, At: now})
}

func clearWarnings(st *State, slices ...string) {
	drop := make(map[string]bool, len(slices))
	for _, name := range slices {
		drop[name] = true
	}
	kept := st.Warnings[:0]
	for _, w := range st.Warnings {
		if !drop[w.Slice] {
			kept = append(kept, w)
		}
	}
	st.Warnings = kept
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Version++
	s.state.UpdatedAt = s.clock.Now()
	snapshot := s.state.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, id := range sortedIntKeys(s.observers) {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snapshot)
	}
}

func replaceSlice(st *State, name string, spec SliceSpec, raw any) {
	switch spec.kind() {
	case KindSummary:
		st.Summary = normalize.Summary(raw, spec.Shape)
	case KindSeries:
		st.Series[name] = normalize.Series(raw, spec.Shape)
	case KindCategories:
		st.Categories[name] = normalize.Categories(raw, spec.Shape, spec.CategoryOrder)
	default:
		st.Slices[name] = normalize.Records(raw, spec.Shape)
	}
}

// mergeByIdentity patches matching records and appends the rest, passing
// appended records through fill when it is set.
func mergeByIdentity(current, updates []records.Record, key records.KeyFunc, fill func(records.Record) records.Record) []records.Record {
	out := records.Clone(current)
	if out == nil {
		out = []records.Record{}
	}
	index := records.Index(out, key)
	for _, update := range updates {
		id := key(update)
		if pos, ok := index[id]; ok && id != "" {
			out[pos] = out[pos].Merge(update)
			continue
		}
		added := update.Clone()
		if fill != nil {
			added = fill(added)
		}
		out = append(out, added)
		if id != "" {
			index[id] = len(out) - 1
		}
	}
	return out
}

func mergeSeries(current, updates []geometry.SeriesPoint) []geometry.SeriesPoint {
	out := append([]geometry.SeriesPoint{}, current...)
	pos := make(map[string]int, len(out))
	for i, p := range out {
		pos[p.Timestamp] = i
	}
	for _, p := range updates {
		if i, ok := pos[p.Timestamp]; ok {
			out[i] = p
			continue
		}
		pos[p.Timestamp] = len(out)
		out = append(out, p)
	}
	return out
}

func mergeCategories(current, updates []geometry.CategoryTotal) []geometry.CategoryTotal {
	out := append([]geometry.CategoryTotal{}, current...)
	pos := make(map[string]int, len(out))
	for i, c := range out {
		pos[c.Category] = i
	}
	for _, c := range updates {
		if i, ok := pos[c.Category]; ok {
			out[i] = c
			continue
		}
		pos[c.Category] = len(out)
		out = append(out, c)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
