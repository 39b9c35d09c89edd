package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig wraps schema violations of a mount configuration.
var ErrInvalidConfig = errors.New("dashboard: invalid configuration")

// ConfigValidator checks the configuration a session is mounted with.
type ConfigValidator interface {
	Validate(def DomainDefinition, config map[string]any) error
}

type compiledSchema struct {
	source string
	schema *jsonschema.Schema
}

// JSONSchemaValidator validates mount configuration against DomainDefinition.Schema.
// Compiled schemas are cached per domain code and recompiled when a manifest
// redefines the schema.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]compiledSchema
}

func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{compiled: map[string]compiledSchema{}}
}

// Validate reports every violation as "location: message" under ErrInvalidConfig.
func (v *JSONSchemaValidator) Validate(def DomainDefinition, config map[string]any) error {
	if len(def.Schema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	payload, err := jsonDocument(config)
	if err != nil {
		return fmt.Errorf("dashboard: config for %s: %w", def.Code, err)
	}
	if err := schema.Validate(payload); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, def.Code, strings.Join(violations(verr), "; "))
		}
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, def.Code, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(def DomainDefinition) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", def.Code, err)
	}
	source := string(raw)

	v.mu.RLock()
	cached, ok := v.compiled[def.Code]
	v.mu.RUnlock()
	if ok && cached.source == source {
		return cached.schema, nil
	}

	compiled, err := jsonschema.CompileString(def.Code+".json", source)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", def.Code, err)
	}
	v.mu.Lock()
	v.compiled[def.Code] = compiledSchema{source: source, schema: compiled}
	v.mu.Unlock()
	return compiled, nil
}

// jsonDocument converts typed Go values (ints, []string) into the generic
// JSON shapes the schema validator expects.
func jsonDocument(config map[string]any) (any, error) {
	if config == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// violations flattens the leaf causes of a validation error.
func violations(err *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	sort.Strings(out)
	return out
}
