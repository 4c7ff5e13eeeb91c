package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	a, ac := context.WithCancel(context.Background())
	b, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(a, b)
	defer cancelJ()
	ac()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when first parent canceled")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(ctx)
	// nolint:staticcheck // SA1012: intentionally nil to verify fallback behavior
	SetBaseContext(nil)
	if serverBaseCtx == nil {
		t.Fatal("base context should never be nil")
	}
	select {
	case <-serverBaseCtx.Done():
		t.Fatal("background context should not be done")
	default:
	}
}

func TestSetMaxBodyBytes_NonPositiveResetsDefault(t *testing.T) {
	prev := maxBodyBytes
	defer SetMaxBodyBytes(prev)
	SetMaxBodyBytes(64)
	if maxBodyBytes != 64 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("maxBodyBytes=%d, want default", maxBodyBytes)
	}
}
