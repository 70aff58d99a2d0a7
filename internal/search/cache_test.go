package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/metrics"
	"github.com/masahif/sitesearch/internal/model"
)

func TestCacheKey(t *testing.T) {
	base := Query{Text: "Лес  река", Site: "https://a.com", Offset: 0, Limit: 20}

	assert.Equal(t, CacheKey(base), CacheKey(Query{Text: "лес река", Site: "https://a.com", Limit: 20}))
	assert.NotEqual(t, CacheKey(base), CacheKey(Query{Text: "лес река", Site: "https://a.com", Offset: 1, Limit: 20}))
	assert.NotEqual(t, CacheKey(base), CacheKey(Query{Text: "лес река", Limit: 20}))
	assert.Contains(t, CacheKey(base), keyPrefix)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(2, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)

	cache.Set(ctx, "a", &Response{Count: 1})
	cache.Set(ctx, "b", &Response{Count: 2})
	cache.Set(ctx, "c", &Response{Count: 3})

	_, ok = cache.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	got, ok := cache.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, 3, got.Count)

	require.NoError(t, cache.Invalidate(ctx))
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheExpires(t *testing.T) {
	cache := NewMemoryCache(10, 20*time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "a", &Response{Count: 1})
	time.Sleep(50 * time.Millisecond)

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCachedEngine(t *testing.T) {
	f := newFixture(t)
	site := f.site("https://a.com")
	f.page(site, "/x", map[string]int{"omega": 1})
	f.filler(site, 10)

	m := metrics.New(prometheus.NewRegistry())
	cache := NewMemoryCache(16, time.Minute)
	cached := NewCachedEngine(f.engine(), cache, m)
	ctx := context.Background()

	resp, err := cached.Search(ctx, Query{Text: "omega"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	// Stale until invalidated
	f.page(site, "/y", map[string]int{"omega": 1})
	resp, err = cached.Search(ctx, Query{Text: "omega"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))

	require.NoError(t, cached.Invalidate(ctx))
	resp, err = cached.Search(ctx, Query{Text: "omega"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
}

func TestCachedEngineDoesNotCacheErrors(t *testing.T) {
	f := newFixture(t)
	m := metrics.New(prometheus.NewRegistry())
	cache := NewMemoryCache(16, time.Minute)
	cached := NewCachedEngine(f.engine(), cache, m)

	for i := 0; i < 2; i++ {
		_, err := cached.Search(context.Background(), Query{Text: "omega", Site: "https://unknown.com"})
		assert.True(t, apperr.IsInput(err))
	}
	assert.Zero(t, cache.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("invalid")))
}

// pausingStore holds the first armed FindPageByID call until released
type pausingStore struct {
	model.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) FindPageByID(ctx context.Context, id int64) (*model.Page, error) {
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return s.Store.FindPageByID(ctx, id)
}

func TestCachedEngineDropsResponseRacingInvalidate(t *testing.T) {
	f := newFixture(t)
	site := f.site("https://a.com")
	f.page(site, "/p1", map[string]int{"omega": 1})
	f.filler(site, 10)

	store := &pausingStore{Store: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewMemoryCache(16, time.Minute)
	cached := NewCachedEngine(NewEngine(store, wordLemmatizer{}, config.DefaultConfig().Search), cache, nil)
	ctx := context.Background()

	store.armed.Store(true)
	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := cached.Search(ctx, Query{Text: "omega"})
		done <- outcome{resp, err}
	}()

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("search did not reach page loading")
	}

	f.page(site, "/p2", map[string]int{"omega": 1})
	require.NoError(t, cached.Invalidate(ctx))
	close(store.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, []string{"/p1"}, uris(first.resp), "in-flight search answers from the old index")
	assert.Zero(t, cache.Len(), "response computed before invalidation is not cached")

	resp, err := cached.Search(ctx, Query{Text: "omega"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"/p1", "/p2"}, uris(resp))
}
