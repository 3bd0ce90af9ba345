package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hyperjump/askindex/internal/metrics"
)

type countingEmbedder struct {
	calls  int
	err    error
	closed bool
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dimensions() int { return 2 }

func (c *countingEmbedder) Close() error {
	c.closed = true
	return nil
}

func TestCachedEmbedder_hitsSkipInnerEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	hits := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit"))

	v1, err := c.Embed(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	v1[0] = 99 // must not corrupt the cached entry
	v2, err := c.Embed(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if v2[0] != 3 {
		t.Errorf("cached vector was mutated: %v", v2)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("hit counter delta = %v, want 1", got)
	}
}

func TestCachedEmbedder_evictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, q := range []string{"a", "b", "a", "c", "a", "b"} {
		if _, err := c.Embed(ctx, q); err != nil {
			t.Fatal(err)
		}
	}
	// a, b miss; a hit; c miss evicts b; a hit; b miss.
	if inner.calls != 4 {
		t.Errorf("inner calls = %d, want 4", inner.calls)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCachedEmbedder_errorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model crashed")}
	c, err := NewCachedEmbedder(inner, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), "q"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCachedEmbedder_Close(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.closed || c.Len() != 0 {
		t.Errorf("closed=%v len=%d", inner.closed, c.Len())
	}
}

func TestNewCachedEmbedder_invalidSize(t *testing.T) {
	if _, err := NewCachedEmbedder(&countingEmbedder{}, 0); err == nil {
		t.Error("expected error for zero size")
	}
}
