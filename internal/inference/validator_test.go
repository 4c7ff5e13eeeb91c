package inference

import (
	"strings"
	"testing"

	"predictd/pkg/types"
)

func TestValidateModel_Complete(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m1", types.FormatJoblib)
	md.Description = "house price regressor"
	md.InputSchema = &types.InputSchema{Required: []string{"sqft"}}
	vr := NewValidator().ValidateModel(md)
	if !vr.Valid || len(vr.Errors) != 0 {
		t.Fatalf("expected valid, got %+v", vr)
	}
	if len(vr.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", vr.Warnings)
	}
}

func TestValidateModel_Errors(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator()
	cases := []struct {
		name   string
		mutate func(*types.ModelMetadata)
		want   string
	}{
		{"empty id", func(m *types.ModelMetadata) { m.ID = " " }, "model id is required"},
		{"empty name", func(m *types.ModelMetadata) { m.Name = "" }, "model name is required"},
		{"empty format", func(m *types.ModelMetadata) { m.Format = "" }, "format tag is required"},
		{"bad format", func(m *types.ModelMetadata) { m.Format = "tflite" }, "unknown format tag"},
		{"empty path", func(m *types.ModelMetadata) { m.Path = "" }, "file path is required"},
		{"missing file", func(m *types.ModelMetadata) { m.Path = m.Path + ".gone" }, "does not exist"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			md := newTestMetadata(t, dir, "m-"+strings.ReplaceAll(c.name, " ", "-"), types.FormatONNX)
			c.mutate(&md)
			vr := v.ValidateModel(md)
			if vr.Valid {
				t.Fatalf("expected invalid")
			}
			found := false
			for _, e := range vr.Errors {
				if strings.Contains(e, c.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error containing %q, got %v", c.want, vr.Errors)
			}
		})
	}
}

func TestValidateModel_Warnings(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m1", types.FormatPickle)
	vr := NewValidator().ValidateModel(md)
	if !vr.Valid {
		t.Fatalf("warnings must not fail validation: %+v", vr)
	}
	if len(vr.Warnings) != 2 {
		t.Fatalf("expected description and schema warnings, got %v", vr.Warnings)
	}
}

func TestValidateInput_NilSchemaAcceptsNonNull(t *testing.T) {
	v := NewValidator()
	if vr := v.ValidateInput("m", map[string]any{"anything": 1.0}, nil); !vr.Valid {
		t.Fatalf("expected valid: %+v", vr)
	}
	if vr := v.ValidateInput("m", "bare string", nil); !vr.Valid {
		t.Fatalf("any non-null payload should pass without a schema: %+v", vr)
	}
	vr := v.ValidateInput("m", nil, nil)
	if vr.Valid {
		t.Fatalf("nil input must never be valid")
	}
	if len(vr.Errors) == 0 || !strings.Contains(vr.Errors[0], "null") {
		t.Fatalf("expected null error, got %v", vr.Errors)
	}
}

func TestValidateInput_MissingRequiredNamesField(t *testing.T) {
	v := NewValidator()
	schema := &types.InputSchema{Required: []string{"features"}}
	vr := v.ValidateInput("x", map[string]any{}, schema)
	if vr.Valid {
		t.Fatalf("expected invalid")
	}
	found := false
	for _, e := range vr.Errors {
		if strings.Contains(e, "features") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an error naming the missing field, got %v", vr.Errors)
	}
}

func TestValidateInput_TypeChecks(t *testing.T) {
	v := NewValidator()
	schema := &types.InputSchema{
		Required: []string{"bedrooms", "sqft"},
		Properties: map[string]types.FieldSpec{
			"bedrooms": {Type: "integer"},
			"sqft":     {Type: "number"},
			"address":  {Type: "string"},
			"garage":   {Type: "boolean"},
			"rooms":    {Type: "array"},
			"extras":   {Type: "object"},
		},
	}
	ok := map[string]any{
		"bedrooms": float64(3), // decoded JSON integers arrive as float64
		"sqft":     1500.5,
		"address":  "12 Elm St",
		"garage":   true,
		"rooms":    []any{"kitchen"},
		"extras":   map[string]any{"pool": false},
	}
	if vr := v.ValidateInput("m", ok, schema); !vr.Valid {
		t.Fatalf("expected valid, got %+v", vr)
	}

	bad := map[string]any{
		"bedrooms": 2.5, // fractional: not an integer
		"sqft":     "big",
	}
	vr := v.ValidateInput("m", bad, schema)
	if vr.Valid {
		t.Fatalf("expected invalid")
	}
	if len(vr.Errors) != 2 {
		t.Fatalf("expected 2 type errors, got %v", vr.Errors)
	}
}

func TestValidateInput_NonObjectWithSchema(t *testing.T) {
	v := NewValidator()
	schema := &types.InputSchema{Required: []string{"a"}}
	if vr := v.ValidateInput("m", []any{1.0}, schema); vr.Valid {
		t.Fatalf("expected invalid for non-object input under a schema")
	}
}

func TestValidateInput_UndeclaredFieldWarns(t *testing.T) {
	v := NewValidator()
	schema := &types.InputSchema{Properties: map[string]types.FieldSpec{"sqft": {Type: "number"}}}
	vr := v.ValidateInput("m", map[string]any{"sqft": 1.0, "color": "red"}, schema)
	if !vr.Valid {
		t.Fatalf("undeclared fields must not fail validation: %+v", vr)
	}
	if len(vr.Warnings) != 1 || !strings.Contains(vr.Warnings[0], "color") {
		t.Fatalf("expected warning about color, got %v", vr.Warnings)
	}
}
