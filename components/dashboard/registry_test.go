package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHoldsDefaultDomains(t *testing.T) {
	reg := NewRegistry()
	defs := reg.Domains()
	require.Len(t, defs, 6)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Code, defs[i].Code, "domains are ordered by code")
	}
	def, ok := reg.Domain(DomainLogPatterns)
	require.True(t, ok)
	assert.Equal(t, "patterns", def.PrimarySlice())
}

func TestRegisterDomainValidates(t *testing.T) {
	reg := NewRegistry()
	cases := map[string]DomainDefinition{
		"missing code":       {Slices: []SliceDefinition{{Name: "a", Endpoint: "/a"}}},
		"no slices":          {Code: "x"},
		"unnamed slice":      {Code: "x", Slices: []SliceDefinition{{Endpoint: "/a"}}},
		"missing endpoint":   {Code: "x", Slices: []SliceDefinition{{Name: "a"}}},
		"duplicate slice":    {Code: "x", Slices: []SliceDefinition{{Name: "a", Endpoint: "/a"}, {Name: "a", Endpoint: "/b"}}},
		"undeclared primary": {Code: "x", Primary: "b", Slices: []SliceDefinition{{Name: "a", Endpoint: "/a"}}},
		"bad source":         {Code: "x", CategorySource: "guess", Slices: []SliceDefinition{{Name: "a", Endpoint: "/a"}}},
		"bad action":         {Code: "x", Slices: []SliceDefinition{{Name: "a", Endpoint: "/a"}}, Actions: []ActionDefinition{{Name: "go"}}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, reg.RegisterDomain(def))
		})
	}
}

func TestRegisterDomainHookAppliesToNewRegistries(t *testing.T) {
	RegisterDomainHook(func(reg *Registry) error {
		return reg.RegisterDomain(DomainDefinition{
			Code:   "hooked.release_health",
			Name:   "Release Health",
			Slices: []SliceDefinition{{Name: "releases", Endpoint: "/api/releases"}},
		})
	})
	t.Cleanup(func() {
		globalHookMu.Lock()
		globalHooks = globalHooks[:len(globalHooks)-1]
		globalHookMu.Unlock()
	})

	reg := NewRegistry()
	def, ok := reg.Domain("hooked.release_health")
	require.True(t, ok)
	assert.Equal(t, "Release Health", def.Name)
}

func TestDefaultDomainDefinitionsReturnsCopy(t *testing.T) {
	defs := DefaultDomainDefinitions()
	defs[0].Name = "mutated"
	assert.NotEqual(t, "mutated", DefaultDomainDefinitions()[0].Name)
}
