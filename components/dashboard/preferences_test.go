package dashboard

import (
	"context"
	"testing"

	"github.com/goliatone/go-insights/pkg/records"
)

func TestInMemoryPreferenceStore(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-1", TenantID: "acme"}
	prefs := Preferences{
		Sort:     records.SortState{Field: "count", Direction: records.Asc},
		PageSize: 50,
		Filters:  map[string][]string{"severity": {"critical", "high"}},
		Period:   "7d",
	}
	if err := store.SavePreferences(context.Background(), viewer, DomainLogPatterns, prefs); err != nil {
		t.Fatalf("SavePreferences returned error: %v", err)
	}
	prefs.Filters["severity"][0] = "mutated"

	out, err := store.Preferences(context.Background(), viewer, DomainLogPatterns)
	if err != nil {
		t.Fatalf("Preferences returned error: %v", err)
	}
	if out.PageSize != 50 || out.Period != "7d" || out.Sort.Field != "count" {
		t.Fatalf("unexpected preferences %+v", out)
	}
	if got := out.Filters["severity"]; len(got) != 2 || got[0] != "critical" {
		t.Fatalf("expected stored filters isolated from caller, got %v", got)
	}

	other, _ := store.Preferences(context.Background(), viewer, DomainPerformance)
	if !other.isZero() {
		t.Fatalf("expected preferences scoped per domain, got %+v", other)
	}
	anon, _ := store.Preferences(context.Background(), ViewerContext{}, DomainLogPatterns)
	if !anon.isZero() {
		t.Fatalf("expected anonymous viewer to get defaults")
	}
}

func TestInMemoryPreferenceStoreRequiresUser(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	if err := store.SavePreferences(context.Background(), ViewerContext{}, DomainLogPatterns, Preferences{}); err == nil {
		t.Fatalf("expected error for anonymous viewer")
	}
}
