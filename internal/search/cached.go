package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/ViewWay/flow-sub000/internal/metrics"
)

// CachedEngine caches search results in front of another engine. Every
// mutation purges the cache so the read-your-writes guarantee of the
// inner engine is preserved.
type CachedEngine struct {
	inner  Engine
	cache  *expirable.LRU[string, *Result]
	hits   atomic.Uint64
	misses atomic.Uint64
	log    *zap.Logger
}

var _ Engine = (*CachedEngine)(nil)

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// NewCachedEngine wraps inner with an expiring LRU of size entries and
// the given TTL.
func NewCachedEngine(inner Engine, size int, ttl time.Duration, log *zap.Logger) *CachedEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedEngine{
		inner: inner,
		cache: expirable.NewLRU[string, *Result](size, nil, ttl),
		log:   log,
	}
}

func (c *CachedEngine) AddOrUpdate(ctx context.Context, docs []Document) error {
	if err := c.inner.AddOrUpdate(ctx, docs); err != nil {
		return err
	}
	c.cache.Purge()
	return nil
}

func (c *CachedEngine) Delete(ctx context.Context, ids []string) error {
	if err := c.inner.Delete(ctx, ids); err != nil {
		return err
	}
	c.cache.Purge()
	return nil
}

func (c *CachedEngine) DeleteAll(ctx context.Context) error {
	if err := c.inner.DeleteAll(ctx); err != nil {
		return err
	}
	c.cache.Purge()
	return nil
}

func (c *CachedEngine) Search(ctx context.Context, opt Option) (*Result, error) {
	opt = opt.WithDefaults()
	key := cacheKey(opt)
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		hit := *cached
		hit.Hits = make([]Document, len(cached.Hits))
		copy(hit.Hits, cached.Hits)
		hit.FromCache = true
		return &hit, nil
	}
	c.misses.Add(1)
	metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	result, err := c.inner.Search(ctx, opt)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, result)
	return result, nil
}

func (c *CachedEngine) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Stats reports cache hit counters and the current entry count.
func (c *CachedEngine) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.Len(),
	}
}

// cacheKey hashes the whole option so every request knob participates in
// the cache identity.
func cacheKey(opt Option) string {
	raw, err := json.Marshal(opt)
	if err != nil {
		return opt.Keyword
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
