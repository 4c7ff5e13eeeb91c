package inference

import (
	"fmt"
	"strings"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

// Validator gatekeeps model loading and per-request input. It is stateless;
// every call produces a fresh ValidationResult.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateModel checks metadata completeness before a load is attempted.
// Any error means the caller must refuse to load; warnings are advisory.
func (v *Validator) ValidateModel(md types.ModelMetadata) types.ValidationResult {
	var errs, warns []string
	if strings.TrimSpace(md.ID) == "" {
		errs = append(errs, "model id is required")
	}
	if strings.TrimSpace(md.Name) == "" {
		errs = append(errs, "model name is required")
	}
	if md.Format == "" {
		errs = append(errs, "format tag is required")
	} else if !md.Format.Valid() {
		errs = append(errs, fmt.Sprintf("unknown format tag %q", md.Format))
	}
	if strings.TrimSpace(md.Path) == "" {
		errs = append(errs, "file path is required")
	} else if !fsutil.RegularFile(md.Path) {
		errs = append(errs, fmt.Sprintf("model file %s does not exist", md.Path))
	}
	if strings.TrimSpace(md.Description) == "" {
		warns = append(warns, "model has no description")
	}
	if md.InputSchema == nil {
		warns = append(warns, "model declares no input schema; any non-null input will be accepted")
	}
	return types.ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// ValidateInput checks input against the model's declared schema: required
// keys present, declared primitive types match. A nil schema accepts any
// non-null payload; a nil payload is never valid.
func (v *Validator) ValidateInput(modelID string, input any, schema *types.InputSchema) types.ValidationResult {
	if input == nil {
		return types.ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("input for model %s must not be null", modelID)},
		}
	}
	if schema == nil {
		return types.ValidationResult{Valid: true}
	}

	obj, ok := input.(map[string]any)
	if !ok {
		return types.ValidationResult{
			Valid:  false,
			Errors: []string{"input must be a JSON object when a schema is declared"},
		}
	}

	var errs, warns []string
	for _, name := range schema.Required {
		if _, present := obj[name]; !present {
			errs = append(errs, fmt.Sprintf("missing required field %q", name))
		}
	}
	for name, spec := range schema.Properties {
		val, present := obj[name]
		if !present {
			continue
		}
		if !typeMatches(spec.Type, val) {
			errs = append(errs, fmt.Sprintf("field %q: expected %s, got %s", name, spec.Type, jsonTypeName(val)))
		}
	}
	for name := range obj {
		if _, declared := schema.Properties[name]; !declared && len(schema.Properties) > 0 {
			warns = append(warns, fmt.Sprintf("field %q is not declared in the schema", name))
		}
	}
	return types.ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// typeMatches checks a decoded JSON value against a declared primitive type.
// JSON numbers decode to float64; "integer" additionally requires a whole value.
func typeMatches(declared string, val any) bool {
	switch declared {
	case "number":
		_, ok := val.(float64)
		return ok
	case "integer":
		f, ok := val.(float64)
		return ok && f == float64(int64(f))
	case "string":
		_, ok := val.(string)
		return ok
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]any)
		return ok
	case "object":
		_, ok := val.(map[string]any)
		return ok
	case "":
		// Undeclared type accepts anything present.
		return true
	default:
		return false
	}
}

func jsonTypeName(val any) string {
	switch val.(type) {
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", val)
	}
}
