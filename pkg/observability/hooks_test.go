package observability

import (
	"context"
	"testing"
	"time"
)

type countingCacheHooks struct {
	hits, misses, sets int
}

func (c *countingCacheHooks) OnCacheHit(context.Context, string)      { c.hits++ }
func (c *countingCacheHooks) OnCacheMiss(context.Context, string)     { c.misses++ }
func (c *countingCacheHooks) OnCacheSet(context.Context, string, int) { c.sets++ }

type countingScanHooks struct {
	starts, completes int
}

func (c *countingScanHooks) OnTreeBuildStart(context.Context, string) {}
func (c *countingScanHooks) OnTreeBuildComplete(context.Context, string, int, int, time.Duration) {
}
func (c *countingScanHooks) OnPackageAnalyzed(context.Context, string, int) {}
func (c *countingScanHooks) OnScanStart(context.Context, string)            { c.starts++ }
func (c *countingScanHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {
	c.completes++
}

func TestDefaultHooksAreNoop(t *testing.T) {
	Reset()

	// Must not panic
	ctx := context.Background()
	Scan().OnScanStart(ctx, "root")
	Cache().OnCacheHit(ctx, "metadata")
	HTTP().OnRequest(ctx, "GET", "registry.npmjs.org", "/lodash")
}

func TestSetCacheHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingCacheHooks{}
	SetCacheHooks(h)

	ctx := context.Background()
	Cache().OnCacheHit(ctx, "metadata")
	Cache().OnCacheMiss(ctx, "tree")
	Cache().OnCacheMiss(ctx, "tree")
	Cache().OnCacheSet(ctx, "metadata", 128)

	if h.hits != 1 || h.misses != 2 || h.sets != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/2/1", h.hits, h.misses, h.sets)
	}
}

func TestSetScanHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingScanHooks{}
	SetScanHooks(h)

	ctx := context.Background()
	Scan().OnScanStart(ctx, "my-app")
	Scan().OnScanComplete(ctx, "my-app", 12, time.Second, nil)

	if h.starts != 1 || h.completes != 1 {
		t.Errorf("starts/completes = %d/%d, want 1/1", h.starts, h.completes)
	}
}

func TestSetNilKeepsExisting(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingCacheHooks{}
	SetCacheHooks(h)
	SetCacheHooks(nil)

	Cache().OnCacheHit(context.Background(), "metadata")
	if h.hits != 1 {
		t.Error("nil registration should not replace existing hooks")
	}
}

func TestReset(t *testing.T) {
	SetCacheHooks(&countingCacheHooks{})
	Reset()

	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore no-op cache hooks")
	}
	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("Reset() should restore no-op scan hooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("Reset() should restore no-op HTTP hooks")
	}
}
