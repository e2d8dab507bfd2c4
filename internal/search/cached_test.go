package search

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingEngine counts calls through to a real in-memory engine.
type recordingEngine struct {
	Engine
	searches int
	fail     error
}

func (r *recordingEngine) Search(ctx context.Context, opt Option) (*Result, error) {
	r.searches++
	if r.fail != nil {
		return nil, r.fail
	}
	return r.Engine.Search(ctx, opt)
}

func cachedEngine(t *testing.T) (*CachedEngine, *recordingEngine) {
	t.Helper()
	inner := &recordingEngine{Engine: memEngine(t)}
	c := NewCachedEngine(inner, 16, time.Minute, nil)
	t.Cleanup(func() { c.Close() })
	return c, inner
}

func TestCachedEngine_HitAndMiss(t *testing.T) {
	c, inner := cachedEngine(t)
	ctx := context.Background()
	if err := c.AddOrUpdate(ctx, []Document{postDoc("p1", "Learning Rust", "", true)}); err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	first, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if first.FromCache {
		t.Error("first search served from cache")
	}

	second, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !second.FromCache {
		t.Error("second search missed the cache")
	}
	if second.Total != first.Total || len(second.Hits) != len(first.Hits) {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
	// The cached copy is flagged without mutating the stored entry.
	if first.FromCache {
		t.Error("cache hit mutated the stored result")
	}

	if inner.searches != 1 {
		t.Errorf("inner searches: %d", inner.searches)
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestCachedEngine_HitsAreNotShared(t *testing.T) {
	c, _ := cachedEngine(t)
	ctx := context.Background()
	if err := c.AddOrUpdate(ctx, []Document{postDoc("p1", "Learning Rust", "", true)}); err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	if _, err := c.Search(ctx, Option{Keyword: "Rust"}); err != nil {
		t.Fatalf("seed search: %v", err)
	}
	hit, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("cached search: %v", err)
	}
	hit.Hits[0].Title = "mangled"

	again, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("search after mutation: %v", err)
	}
	if !again.FromCache {
		t.Fatal("entry evicted")
	}
	if again.Hits[0].Title == "mangled" {
		t.Error("cached entry shares its hit slice with callers")
	}
}

func TestCachedEngine_DistinctOptionsDistinctEntries(t *testing.T) {
	c, inner := cachedEngine(t)
	ctx := context.Background()
	if err := c.AddOrUpdate(ctx, []Document{postDoc("p1", "Learning Rust", "", true)}); err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	if _, err := c.Search(ctx, Option{Keyword: "Rust"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.Search(ctx, Option{Keyword: "Rust", FilterPublished: boolPtr(true)}); err != nil {
		t.Fatalf("filtered search: %v", err)
	}
	if inner.searches != 2 {
		t.Errorf("inner searches: %d", inner.searches)
	}

	// An explicit default limit hashes like the implied one.
	if _, err := c.Search(ctx, Option{Keyword: "Rust", Limit: DefaultLimit}); err != nil {
		t.Fatalf("default-limit search: %v", err)
	}
	if inner.searches != 2 {
		t.Errorf("inner searches after canonical option: %d", inner.searches)
	}
}

func TestCachedEngine_MutationsPurge(t *testing.T) {
	c, inner := cachedEngine(t)
	ctx := context.Background()
	if err := c.AddOrUpdate(ctx, []Document{postDoc("p1", "Learning Rust", "", true)}); err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	res, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("seed hits: %d", res.Total)
	}

	if err := c.Delete(ctx, []string{DocumentID("post", "p1")}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	res, err = c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("search after delete: %v", err)
	}
	if res.FromCache {
		t.Error("stale cache entry survived a delete")
	}
	if res.Total != 0 {
		t.Errorf("hits after delete: %d", res.Total)
	}

	if err := c.AddOrUpdate(ctx, []Document{postDoc("p1", "Learning Rust", "", true)}); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	res, err = c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("search after re-add: %v", err)
	}
	if res.FromCache || res.Total != 1 {
		t.Errorf("hits after re-add: from_cache=%v total=%d", res.FromCache, res.Total)
	}

	if err := c.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if res, err := c.Search(ctx, Option{Keyword: "Rust"}); err != nil || res.Total != 0 {
		t.Errorf("hits after delete all: total=%d err=%v", res.Total, err)
	}
	if inner.searches != 4 {
		t.Errorf("inner searches: %d", inner.searches)
	}
}

func TestCachedEngine_ErrorsAreNotCached(t *testing.T) {
	c, inner := cachedEngine(t)
	ctx := context.Background()

	inner.fail = errors.New("boom")
	if _, err := c.Search(ctx, Option{Keyword: "Rust"}); err == nil {
		t.Fatal("error swallowed")
	}
	inner.fail = nil

	res, err := c.Search(ctx, Option{Keyword: "Rust"})
	if err != nil {
		t.Fatalf("search after recovery: %v", err)
	}
	if res.FromCache {
		t.Error("failed search left a cache entry")
	}
	if inner.searches != 2 {
		t.Errorf("inner searches: %d", inner.searches)
	}
}
