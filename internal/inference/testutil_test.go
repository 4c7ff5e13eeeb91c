package inference

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"predictd/pkg/types"
)

// newTestMetadata writes a small model file and returns metadata for it.
func newTestMetadata(t *testing.T, dir, id string, format types.Format) types.ModelMetadata {
	t.Helper()
	p := filepath.Join(dir, id+".bin")
	if err := os.WriteFile(p, []byte("model-bytes"), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	return types.ModelMetadata{
		ID:     id,
		Name:   id,
		Format: format,
		Path:   p,
		Status: types.StatusActive,
	}
}

// fakeRuntime is a controllable ModelRuntime for loader/dispatcher tests.
type fakeRuntime struct {
	mu        sync.Mutex
	closed    bool
	predictFn func(ctx context.Context, input any) (any, error)
}

func (r *fakeRuntime) Predict(ctx context.Context, input any) (any, error) {
	if r.predictFn != nil {
		return r.predictFn(ctx, input)
	}
	return map[string]any{"ok": true}, nil
}

func (r *fakeRuntime) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeRuntime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// countingOpener counts underlying opens and hands out fakeRuntimes.
type countingOpener struct {
	opens   atomic.Int64
	delay   time.Duration
	fail    error
	mu      sync.Mutex
	handles map[string]*fakeRuntime
}

func newCountingOpener() *countingOpener {
	return &countingOpener{handles: make(map[string]*fakeRuntime)}
}

func (o *countingOpener) open(md types.ModelMetadata) (ModelRuntime, error) {
	o.opens.Add(1)
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	if o.fail != nil {
		return nil, o.fail
	}
	rt := &fakeRuntime{}
	o.mu.Lock()
	o.handles[md.ID] = rt
	o.mu.Unlock()
	return rt, nil
}

func (o *countingOpener) handle(id string) *fakeRuntime {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handles[id]
}
