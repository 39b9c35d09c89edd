package dashboard

import (
	"context"
	"errors"
	"sync"
)

var errPreferencesViewer = errors.New("dashboard: preference store requires viewer user id")

// InMemoryPreferenceStore provides a concurrency-safe default store.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]Preferences
}

var _ PreferenceStore = (*InMemoryPreferenceStore)(nil)

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]Preferences),
	}
}

// Preferences returns stored preferences, or zero preferences for anonymous
// viewers and viewers that never saved any.
func (s *InMemoryPreferenceStore) Preferences(_ context.Context, viewer ViewerContext, domain string) (Preferences, error) {
	if viewer.UserID == "" {
		return Preferences{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePreferences(s.data[s.key(viewer, domain)]), nil
}

// SavePreferences persists preferences for a viewer and domain.
func (s *InMemoryPreferenceStore) SavePreferences(_ context.Context, viewer ViewerContext, domain string, prefs Preferences) error {
	if viewer.UserID == "" {
		return errPreferencesViewer
	}
	prefs = clonePreferences(prefs)
	if prefs.PageSize < 0 {
		prefs.PageSize = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(viewer, domain)] = prefs
	return nil
}

func (s *InMemoryPreferenceStore) key(viewer ViewerContext, domain string) string {
	key := viewer.UserID + "::" + domain
	if viewer.TenantID != "" {
		key = viewer.TenantID + "::" + key
	}
	return key
}

func clonePreferences(p Preferences) Preferences {
	out := p
	if p.Filters != nil {
		out.Filters = make(map[string][]string, len(p.Filters))
		for k, v := range p.Filters {
			out.Filters[k] = append([]string(nil), v...)
		}
	}
	return out
}
