package viewstate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-insights/pkg/live"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
)

var _ live.Handler = (*Store)(nil)

// HandleMessage applies one stream message. Snapshots replace the whole state
// or the single slice the message names. Updates are partial: they merge into
// the slice resolved from the entity name and only records appended on a miss
// receive field defaults. Heartbeats are ignored.
func (s *Store) HandleMessage(_ context.Context, msg live.Message) error {
	switch msg.Kind() {
	case live.KindHeartbeat:
		return nil
	case live.KindSnapshot:
		return s.applySnapshot(msg)
	case live.KindUpdate:
		return s.applyUpdate(msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMessage, msg.Type)
	}
}

func (s *Store) applySnapshot(msg live.Message) error {
	raw, err := normalize.Decode(msg.Data)
	if err != nil {
		return err
	}
	if msg.Slice != "" {
		return s.Apply(msg.Slice, raw)
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("viewstate: snapshot payload must be an object")
	}
	s.mutate(func(st *State) {
		fresh := emptyState()
		fresh.Query = st.Query
		fresh.Status = st.Status
		fresh.Version = st.Version
		for _, name := range sortedKeys(s.specs) {
			value, present := payload[name]
			if !present {
				continue
			}
			replaceSlice(&fresh, name, s.specs[name], value)
		}
		*st = fresh
	})
	return nil
}

func (s *Store) applyUpdate(msg live.Message) error {
	name, spec, ok := s.resolveSlice(msg)
	if !ok {
		return fmt.Errorf("%w: no slice for %q", ErrUnknownSlice, msg.Type)
	}
	raw, err := normalize.Decode(msg.Data)
	if err != nil {
		return err
	}
	if raw == nil {
		s.logger.Debug("viewstate: empty update", zap.String("type", msg.Type))
		return nil
	}
	switch spec.kind() {
	case KindSummary:
		patch := normalize.Summary(raw, normalize.ShapeHint{Key: spec.Shape.Key, Wrappers: spec.Shape.Wrappers})
		s.mutate(func(st *State) {
			st.Summary = st.Summary.Merge(patch)
		})
	case KindSeries:
		points := normalize.Series(listOf(raw, spec.Shape), spec.Shape)
		s.mutate(func(st *State) {
			st.Series[name] = mergeSeries(st.Series[name], points)
		})
	case KindCategories:
		totals := normalize.Categories(raw, spec.Shape, spec.CategoryOrder)
		s.mutate(func(st *State) {
			st.Categories[name] = mergeCategories(st.Categories[name], totals)
		})
	default:
		patchHint := spec.Shape
		patchHint.Defaults = nil
		updates := normalize.Records(listOf(raw, spec.Shape), patchHint)
		if len(updates) == 0 {
			return nil
		}
		fill := func(r records.Record) records.Record {
			return normalize.Records([]any{r}, spec.Shape)[0]
		}
		s.mutate(func(st *State) {
			st.Slices[name] = mergeByIdentity(st.Slices[name], updates, spec.Identity(), fill)
		})
	}
	return nil
}

// resolveSlice maps an update to a slice: the explicit slice field, then any
// slice listing the entity, then the entity name, then its plural.
func (s *Store) resolveSlice(msg live.Message) (string, SliceSpec, bool) {
	if msg.Slice != "" {
		spec, ok := s.specs[msg.Slice]
		return msg.Slice, spec, ok
	}
	entity := msg.Entity()
	for _, name := range sortedKeys(s.specs) {
		for _, alias := range s.specs[name].Entities {
			if strings.EqualFold(alias, entity) {
				return name, s.specs[name], true
			}
		}
	}
	for _, candidate := range []string{entity, entity + "s"} {
		if spec, ok := s.specs[candidate]; ok {
			return candidate, spec, true
		}
	}
	return "", SliceSpec{}, false
}

// listOf wraps a single object into a list unless it is an envelope the
// normalizer can unwrap itself.
func listOf(raw any, hint normalize.ShapeHint) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	keys := append([]string{hint.Key}, normalize.DefaultWrappers...)
	if len(hint.Wrappers) > 0 {
		keys = append([]string{hint.Key}, hint.Wrappers...)
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := m[k]; ok && v != nil {
			return raw
		}
	}
	return []any{records.Record(m)}
}
