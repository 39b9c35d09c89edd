package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-insights/pkg/export"
)

type stubTranslationService struct {
	value string
	err   error
}

func (s stubTranslationService) Translate(ctx context.Context, key, locale string, args map[string]any) (string, error) {
	return s.value, s.err
}

func TestResolveLocalizedValue(t *testing.T) {
	values := map[string]string{
		"en":    "Dashboard",
		"es":    "Tablero",
		"es-mx": "Panel",
	}
	if got := ResolveLocalizedValue(values, "es-mx", "fallback"); got != "Panel" {
		t.Fatalf("expected region-specific match, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "es-ar", "fallback"); got != "Tablero" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "fr", "Dashboard"); got != "Dashboard" {
		t.Fatalf("expected fallback when locale missing, got %q", got)
	}
	if got := ResolveLocalizedValue(nil, "es", "Dashboard"); got != "Dashboard" {
		t.Fatalf("expected fallback when no localized map, got %q", got)
	}
}

func TestTranslateOrFallback(t *testing.T) {
	svc := stubTranslationService{value: "Tablero"}
	out := translateOrFallback(context.Background(), svc, "insights.title", "es", "Dashboard", nil)
	if out != "Tablero" {
		t.Fatalf("expected translator value, got %q", out)
	}
	svc = stubTranslationService{err: errors.New("boom")}
	out = translateOrFallback(context.Background(), svc, "insights.title", "es", "Dashboard", nil)
	if out != "Dashboard" {
		t.Fatalf("expected fallback on error, got %q", out)
	}
}

type keyedTranslationService map[string]string

func (s keyedTranslationService) Translate(_ context.Context, key, _ string, _ map[string]any) (string, error) {
	return s[key], nil
}

func TestLocalizeView(t *testing.T) {
	def := DomainDefinition{
		Code:          DomainPerformance,
		Name:          "Performance",
		NameLocalized: map[string]string{"es": "Rendimiento"},
	}
	vm := ViewModel{Columns: []export.Column{{Field: "p95", Label: "P95"}, {Field: "status", Label: "Status"}}}
	svc := keyedTranslationService{"insights." + DomainPerformance + ".column.status": "Estado"}

	out := localizeView(context.Background(), svc, def, "es-MX", vm)
	if out.Title != "Rendimiento" {
		t.Fatalf("expected localized name, got %q", out.Title)
	}
	if out.Columns[0].Label != "P95" || out.Columns[1].Label != "Estado" {
		t.Fatalf("unexpected column labels %+v", out.Columns)
	}
	if vm.Columns[1].Label != "Status" {
		t.Fatalf("expected input columns untouched")
	}
}

func TestLocaleCandidates(t *testing.T) {
	got := localeCandidates("pt_BR")
	want := []string{"pt-br", "pt", "default"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
