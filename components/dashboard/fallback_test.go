package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoPayloadsCoverEveryDefaultSlice(t *testing.T) {
	payloads := DemoPayloads()
	for _, def := range DefaultDomainDefinitions() {
		for _, slice := range def.Slices {
			_, ok := payloads[def.Code][slice.Name]
			assert.Truef(t, ok, "%s/%s has no demo payload", def.Code, slice.Name)
		}
	}
}

func TestDemoEndpointPayloadsKeyByEndpoint(t *testing.T) {
	out := DemoEndpointPayloads(DefaultDomainDefinitions())
	assert.Contains(t, out, "/api/code-quality/priorities")
	assert.Contains(t, out, "/api/performance/latency")
	assert.NotContains(t, out, "/api/code-quality/files/{id}")
}

func TestFallbackPolicies(t *testing.T) {
	def := domainDefinition(t, DomainTechDebt)
	slice, ok := def.Slice("items")
	require.True(t, ok)
	cause := errors.New("offline")

	assert.Nil(t, EmptyFallback{}.Fallback(context.Background(), def, slice, cause))
	assert.Nil(t, DemoFallback{}.Fallback(context.Background(), def, slice, cause))
	assert.NotNil(t, NewDemoFallback().Fallback(context.Background(), def, slice, cause))

	called := false
	fn := FallbackFunc(func(_ context.Context, d DomainDefinition, s SliceDefinition, err error) any {
		called = true
		assert.Equal(t, DomainTechDebt, d.Code)
		assert.Equal(t, "items", s.Name)
		assert.ErrorIs(t, err, cause)
		return map[string]any{"debt_items": []any{}}
	})
	assert.NotNil(t, normalizeFallback(fn).Fallback(context.Background(), def, slice, cause))
	assert.True(t, called)
	assert.IsType(t, EmptyFallback{}, normalizeFallback(nil))
}

func TestFallbackNilKeepsStaleData(t *testing.T) {
	ctrl, client := loadedController(t, DomainTechDebt)
	require.Len(t, ctrl.View().Rows, 4)

	client.SetError("/api/tech-debt/items", errors.New("timeout"))
	require.NoError(t, ctrl.Refresh(context.Background(), "items"))

	vm := ctrl.View()
	assert.Len(t, vm.Rows, 4, "previous records survive a failed refresh")
	require.Len(t, vm.Warnings, 1)
	assert.Equal(t, "items", vm.Warnings[0].Slice)
}
