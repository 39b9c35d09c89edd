package dashboard

import (
	"errors"
	"strings"
	"testing"
)

func TestJSONSchemaValidatorRejectsInvalidPayload(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := DomainDefinition{
		Code: "demo.string_required",
		Schema: map[string]any{
			"type":     "object",
			"required": []string{"name"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "minLength": 1},
			},
		},
	}
	if err := validator.Validate(def, map[string]any{"name": "Dashboard"}); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	err := validator.Validate(def, map[string]any{})
	if err == nil {
		t.Fatalf("expected validation error for missing name")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "demo.string_required") || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected domain and missing property in message, got %v", err)
	}
}

func TestJSONSchemaValidatorRecompilesRedefinedSchema(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := DomainDefinition{
		Code:   "demo.redefined",
		Schema: map[string]any{"type": "object", "additionalProperties": false},
	}
	if err := validator.Validate(def, map[string]any{"region": "eu"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected additional property to be rejected, got %v", err)
	}
	def.Schema = map[string]any{
		"type":       "object",
		"properties": map[string]any{"region": map[string]any{"type": "string"}},
	}
	if err := validator.Validate(def, map[string]any{"region": "eu"}); err != nil {
		t.Fatalf("expected redefined schema to accept region, got %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected a single cache entry per code, got %d", len(validator.compiled))
	}
}

func TestJSONSchemaValidatorCachesCompiledSchemas(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := DomainDefinition{
		Code:   "demo.cache",
		Schema: map[string]any{"type": "object"},
	}
	if err := validator.Validate(def, nil); err != nil {
		t.Fatalf("unexpected error validating config: %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected schema cache to contain 1 entry, got %d", len(validator.compiled))
	}
	if err := validator.Validate(def, map[string]any{}); err != nil {
		t.Fatalf("unexpected error on cached validation: %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected schema cache to remain 1 entry, got %d", len(validator.compiled))
	}
}

func TestJSONSchemaValidatorSkipsDomainsWithoutSchema(t *testing.T) {
	validator := NewJSONSchemaValidator()
	if err := validator.Validate(DomainDefinition{Code: "demo.open"}, map[string]any{"anything": 1}); err != nil {
		t.Fatalf("expected no error without schema, got %v", err)
	}
	if len(validator.compiled) != 0 {
		t.Fatalf("expected nothing compiled, got %d", len(validator.compiled))
	}
}

func TestDefaultDomainSchemasAcceptMountConfig(t *testing.T) {
	validator := NewJSONSchemaValidator()
	config := map[string]any{
		"period":    "7d",
		"page_size": 25,
		"live":      true,
		"filters":   map[string]any{"severity": []any{"high", "critical"}},
	}
	for _, def := range DefaultDomainDefinitions() {
		if err := validator.Validate(def, config); err != nil {
			t.Fatalf("domain %s rejected config: %v", def.Code, err)
		}
	}
	bad := map[string]any{"page_size": 0}
	if err := validator.Validate(domainDefinition(t, DomainLogPatterns), bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected page_size 0 to be rejected, got %v", err)
	}
}
