package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"predictd/internal/inference"
)

var errTestSentinel = errors.New("disk read failed")

func TestPredict_ValidationMaps400(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrValidation([]string{"missing required field: sqft"})}
	w := postJSON(t, NewMux(svc), "/predict/m1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPredict_NotLoadedMaps404(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrNotLoaded("m-missing")}
	w := postJSON(t, NewMux(svc), "/predict/m-missing", `{}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPredict_ExecTimeoutMaps408(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrExecTimeout("m1")}
	w := postJSON(t, NewMux(svc), "/predict/m1", `{}`)
	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d", w.Code)
	}
}

func TestPredict_TooBusyMaps429(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrTooBusy("m1")}
	w := postJSON(t, NewMux(svc), "/predict/m1", `{}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestPredict_UnsupportedFormatMaps400(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrUnsupportedFormat("gguf")}
	w := postJSON(t, NewMux(svc), "/predict/m1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPredict_LoadErrorMaps500(t *testing.T) {
	svc := &mockService{predictErr: inference.ErrLoad("m1", errTestSentinel)}
	w := postJSON(t, NewMux(svc), "/predict/m1", `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestWarmup_NotLoadedMaps404(t *testing.T) {
	svc := &mockService{warmupErr: inference.ErrNotLoaded("m1")}
	r := NewMux(svc)
	w := postJSON(t, r, "/predict/m1/warmup", `{"sqft": 1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
