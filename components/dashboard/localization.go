package dashboard

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/goliatone/go-insights/pkg/export"
)

// TranslationService exposes locale-aware translation helpers backed by go-cms (or compatible) engines.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`es-mx`) automatically fall back to their
// base language (`es`) when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

// NameForLocale returns the display name for the requested locale with graceful fallback to the default name.
func (d DomainDefinition) NameForLocale(locale string) string {
	return ResolveLocalizedValue(d.NameLocalized, locale, d.Name)
}

// DescriptionForLocale returns the localized description if available.
func (d DomainDefinition) DescriptionForLocale(locale string) string {
	return ResolveLocalizedValue(d.DescriptionLocalized, locale, d.Description)
}

// localeCandidates lists the locale, its base language and "default".
func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if tag, err := language.Parse(locale); err == nil {
		base, _ := tag.Base()
		if b := base.String(); b != "" && b != locale {
			candidates = append(candidates, b)
		}
	} else if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(locale)), "_", "-")
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, params); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}

// localizeView translates the title, description and column labels of vm.
// Keys follow "insights.<domain>.title", ".description" and ".column.<field>".
func localizeView(ctx context.Context, svc TranslationService, def DomainDefinition, locale string, vm ViewModel) ViewModel {
	vm.Title = def.NameForLocale(locale)
	vm.Description = def.DescriptionForLocale(locale)
	if svc == nil {
		return vm
	}
	prefix := "insights." + def.Code
	vm.Title = translateOrFallback(ctx, svc, prefix+".title", locale, vm.Title, nil)
	vm.Description = translateOrFallback(ctx, svc, prefix+".description", locale, vm.Description, nil)
	if len(vm.Columns) > 0 {
		columns := make([]export.Column, len(vm.Columns))
		copy(columns, vm.Columns)
		for i, col := range columns {
			columns[i].Label = translateOrFallback(ctx, svc, prefix+".column."+col.Field, locale, col.Label, nil)
		}
		vm.Columns = columns
	}
	return vm
}
