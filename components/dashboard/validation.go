package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names registered by NewJSONSchemaValidator.
const (
	SchemaWidgetContent  = "dashboard.widget_content"
	SchemaGeneratedChart = "dashboard.generated_chart"
)

// ErrInvalidWidget wraps every widget validation failure.
var ErrInvalidWidget = errors.New("dashboard: invalid widget")

// ConfigValidator validates widget specs before they enter a dashboard.
type ConfigValidator interface {
	ValidateSpec(spec WidgetSpec) error
}

// WidgetValidator checks struct rules with validator/v10 and the dataset and
// render config with a JSON schema.
type WidgetValidator struct {
	structs *validator.Validate
	schemas *JSONSchemaValidator
}

// NewWidgetValidator builds the default ConfigValidator.
func NewWidgetValidator(schemas *JSONSchemaValidator) *WidgetValidator {
	if schemas == nil {
		schemas = NewJSONSchemaValidator()
	}
	return &WidgetValidator{structs: validator.New(), schemas: schemas}
}

// ValidateSpec reports the first rule spec breaks.
func (v *WidgetValidator) ValidateSpec(spec WidgetSpec) error {
	if err := v.structs.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidWidget, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	if spec.Kind == KindChart && spec.ChartVariant == "" {
		return fmt.Errorf("%w: chart widgets require chart_variant", ErrInvalidWidget)
	}
	if spec.Kind != KindChart && spec.ChartVariant != "" {
		return fmt.Errorf("%w: chart_variant is only valid for chart widgets", ErrInvalidWidget)
	}
	if p := spec.Placement; p != nil && (p.X < 0 || p.Y < 0 || p.W < 0 || p.H < 0) {
		return fmt.Errorf("%w: placement must be non-negative", ErrInvalidWidget)
	}
	content := map[string]any{
		"dataset":       spec.Dataset,
		"render_config": spec.RenderConfig,
	}
	if err := v.schemas.Validate(SchemaWidgetContent, content); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	return nil
}

// JSONSchemaValidator compiles named schemas once and validates payloads.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	sources  map[string]map[string]any
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator with the widget content and
// generated chart schemas registered.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	v := &JSONSchemaValidator{
		sources:  make(map[string]map[string]any),
		compiled: make(map[string]*jsonschema.Schema),
	}
	v.Register(SchemaWidgetContent, widgetContentSchema)
	v.Register(SchemaGeneratedChart, generatedChartSchema)
	return v
}

// Register adds or replaces a named schema.
func (v *JSONSchemaValidator) Register(name string, schema map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sources[name] = schema
	delete(v.compiled, name)
}

// Validate checks payload against the named schema. Payload is normalized
// through JSON first so Go structs validate like decoded documents.
func (v *JSONSchemaValidator) Validate(name string, payload any) error {
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dashboard: marshal payload for %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dashboard: normalize payload for %s: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("dashboard: %s failed validation: %w", name, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	source, known := v.sources[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	if !known {
		return nil, fmt.Errorf("dashboard: unknown schema %s", name)
	}
	data, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}

var renderConfigSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"x_key":    map[string]any{"type": "string", "maxLength": 64},
		"y_key":    map[string]any{"type": "string", "maxLength": 64},
		"data_key": map[string]any{"type": "string", "maxLength": 64},
		"colors": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
	},
}

var widgetContentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"dataset": map[string]any{
			"type":     []any{"array", "null"},
			"maxItems": 5000,
			"items":    map[string]any{"type": "object"},
		},
		"render_config": renderConfigSchema,
	},
}

var generatedChartSchema = map[string]any{
	"type":     "object",
	"required": []any{"type"},
	"properties": map[string]any{
		"type":  map[string]any{"enum": []any{"bar", "line", "pie"}},
		"title": map[string]any{"type": "string"},
		"data": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object"},
		},
		"config": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"xKey":    map[string]any{"type": "string"},
				"yKey":    map[string]any{"type": "string"},
				"dataKey": map[string]any{"type": "string"},
				"colors": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
		},
	},
}
