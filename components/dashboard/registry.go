package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-insights/pkg/viewstate"
)

var errDomainCodeRequired = errors.New("dashboard: domain code is required")

// DomainHook lets packages register insight domains during init().
type DomainHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []DomainHook
)

// RegisterDomainHook registers a hook executed against new registries.
func RegisterDomainHook(h DomainHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry implements DomainRegistry with hook + manifest support.
type Registry struct {
	mu           sync.RWMutex
	domains      map[string]DomainDefinition
	manifestMeta map[string]ManifestSource
}

var _ DomainRegistry = (*Registry)(nil)

// NewRegistry builds a registry holding the default domains and applies global hooks.
func NewRegistry() *Registry {
	reg := &Registry{
		domains:      map[string]DomainDefinition{},
		manifestMeta: map[string]ManifestSource{},
	}
	for _, def := range DefaultDomainDefinitions() {
		_ = reg.RegisterDomain(def)
	}
	_ = reg.ApplyHooks()
	return reg
}

// ApplyHooks executes registered domain hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDomain validates and stores a domain definition, replacing any
// previous definition with the same code.
func (r *Registry) RegisterDomain(def DomainDefinition) error {
	if err := validateDefinition(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domains[def.Code] = def
	return nil
}

// Domain fetches a domain definition by code.
func (r *Registry) Domain(code string) (DomainDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.domains[code]
	return def, ok
}

// Domains returns all registered definitions ordered by code.
func (r *Registry) Domains() []DomainDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]DomainDefinition, 0, len(r.domains))
	for _, def := range r.domains {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}

// ManifestMetadata returns where a manifest-registered domain came from.
func (r *Registry) ManifestMetadata(code string) (ManifestSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.manifestMeta[code]
	return meta, ok
}

func (r *Registry) recordManifestMetadata(code string, meta ManifestSource) {
	if meta.isZero() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifestMeta[code] = meta
}

func validateDefinition(def DomainDefinition) error {
	if def.Code == "" {
		return errDomainCodeRequired
	}
	if len(def.Slices) == 0 {
		return fmt.Errorf("dashboard: domain %s declares no slices", def.Code)
	}
	seen := make(map[string]bool, len(def.Slices))
	for idx, s := range def.Slices {
		if s.Name == "" {
			return fmt.Errorf("dashboard: domain %s slice at index %d is missing a name", def.Code, idx)
		}
		if s.Endpoint == "" {
			return fmt.Errorf("dashboard: domain %s slice %s is missing an endpoint", def.Code, s.Name)
		}
		switch s.Kind {
		case "", viewstate.KindRecords, viewstate.KindSummary, viewstate.KindSeries, viewstate.KindCategories:
		default:
			return fmt.Errorf("dashboard: domain %s slice %s has unknown kind %q", def.Code, s.Name, s.Kind)
		}
		if seen[s.Name] {
			return fmt.Errorf("dashboard: domain %s duplicates slice %s", def.Code, s.Name)
		}
		seen[s.Name] = true
	}
	if def.Primary != "" && !seen[def.Primary] {
		return fmt.Errorf("dashboard: domain %s primary slice %s not declared", def.Code, def.Primary)
	}
	switch def.CategorySource {
	case "", CategoriesFromEndpoint, CategoriesFromRecords:
	default:
		return fmt.Errorf("dashboard: domain %s has unknown category source %q", def.Code, def.CategorySource)
	}
	for _, a := range def.Actions {
		if a.Name == "" || a.Endpoint == "" {
			return fmt.Errorf("dashboard: domain %s declares an action without name or endpoint", def.Code)
		}
	}
	return nil
}
