package inference

import (
	"context"
	"reflect"
	"testing"

	"predictd/pkg/types"
)

func TestOpenRuntimeFamilies(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		format types.Format
		family string
	}{
		{types.FormatPickle, "sklearn"},
		{types.FormatJoblib, "sklearn"},
		{types.FormatKeras, "keras"},
		{types.FormatONNX, "onnx"},
		{types.FormatPyTorch, "pytorch"},
		{types.FormatTorchState, "pytorch"},
	}
	for _, c := range cases {
		t.Run(string(c.format), func(t *testing.T) {
			md := newTestMetadata(t, dir, "m-"+string(c.format), c.format)
			rt, err := OpenRuntime(md)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer rt.Close()
			out, err := rt.Predict(context.Background(), map[string]any{"x": 1.0})
			if err != nil {
				t.Fatalf("predict: %v", err)
			}
			m, ok := out.(map[string]any)
			if !ok {
				t.Fatalf("output type: %T", out)
			}
			if m["family"] != c.family || m["format"] != string(c.format) {
				t.Fatalf("output tags: %+v", m)
			}
		})
	}
}

func TestOpenRuntimeUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m", types.FormatPickle)
	md.Format = "gguf"
	_, err := OpenRuntime(md)
	if err == nil || !IsUnsupportedFormat(err) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestOpenRuntimeMissingFile(t *testing.T) {
	md := types.ModelMetadata{ID: "m", Format: types.FormatONNX, Path: "/does/not/exist.onnx"}
	if _, err := OpenRuntime(md); err == nil {
		t.Fatalf("expected error for unreadable source")
	}
}

func TestStubRuntimeClosed(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m", types.FormatKeras)
	rt, err := OpenRuntime(md)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Close is idempotent; Predict after close must fail.
	if err := rt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := rt.Predict(context.Background(), nil); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestStubRuntimeDeterministic(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m", types.FormatJoblib)
	rt, err := OpenRuntime(md)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	in := map[string]any{"bedrooms": 3.0, "sqft": 1500.0}
	a, err := rt.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := rt.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same payload must yield the same output: %v vs %v", a, b)
	}
}

func TestStubRuntimeCanceledContext(t *testing.T) {
	dir := t.TempDir()
	md := newTestMetadata(t, dir, "m", types.FormatPyTorch)
	rt, err := OpenRuntime(md)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rt.Predict(ctx, map[string]any{}); err == nil {
		t.Fatalf("expected context error")
	}
}
