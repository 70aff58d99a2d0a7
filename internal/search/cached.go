package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/logging"
	"github.com/masahif/sitesearch/internal/metrics"
)

// CachedEngine serves repeated queries from a Cache and collapses
// concurrent identical queries into one engine call. Errors are never cached,
// and a response computed before an Invalidate is never stored.
type CachedEngine struct {
	engine  *Engine
	cache   Cache
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	// gen counts invalidations; genMu orders them against cache writes
	genMu sync.RWMutex
	gen   uint64
}

var _ Searcher = (*CachedEngine)(nil)

// NewCachedEngine wraps engine with cache
func NewCachedEngine(engine *Engine, cache Cache, m *metrics.Metrics) *CachedEngine {
	if m == nil {
		m = metrics.NewNop()
	}
	return &CachedEngine{
		engine:  engine,
		cache:   cache,
		metrics: m,
		logger:  logging.WithComponent("search"),
	}
}

// Search implements Searcher
func (c *CachedEngine) Search(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	q = c.engine.Normalize(q)
	key := CacheKey(q)

	if resp, ok := c.cache.Get(ctx, key); ok {
		c.metrics.CacheHitsTotal.Inc()
		c.observe(start, "hit", resp, nil)
		return resp, nil
	}
	c.metrics.CacheMissesTotal.Inc()

	gen := c.generation()
	val, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		resp, err := c.engine.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		c.store(ctx, gen, key, resp)
		return resp, nil
	})
	if err != nil {
		c.observe(start, "miss", nil, err)
		return nil, err
	}

	resp := val.(*Response)
	c.observe(start, "miss", resp, nil)
	return resp, nil
}

// Invalidate drops every cached response; the crawler calls it whenever the
// index changes. Searches already running when it is called still answer
// their callers but no longer write to the cache.
func (c *CachedEngine) Invalidate(ctx context.Context) error {
	c.genMu.Lock()
	c.gen++
	c.genMu.Unlock()
	return c.cache.Invalidate(ctx)
}

func (c *CachedEngine) generation() uint64 {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.gen
}

// store caches resp unless the index changed since gen was read
func (c *CachedEngine) store(ctx context.Context, gen uint64, key string, resp *Response) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.gen != gen {
		c.logger.Debug("discarding response computed before invalidation", "key", key)
		return
	}
	c.cache.Set(ctx, key, resp)
}

func (c *CachedEngine) observe(start time.Time, cacheStatus string, resp *Response, err error) {
	c.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())

	switch {
	case apperr.IsInput(err):
		c.metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
	case err != nil:
		c.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		c.logger.Error("search failed", "error", err)
	case resp.Count == 0:
		c.metrics.SearchQueriesTotal.WithLabelValues("empty").Inc()
		c.metrics.SearchResultsCount.Observe(0)
	default:
		c.metrics.SearchQueriesTotal.WithLabelValues("ok").Inc()
		c.metrics.SearchResultsCount.Observe(float64(resp.Count))
	}
}
