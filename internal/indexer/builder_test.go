package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masahif/sitesearch/internal/model"
	"github.com/masahif/sitesearch/internal/storage"
)

func setup(t *testing.T) (*storage.Store, *model.Site) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	site := &model.Site{URL: "https://example.com", Name: "Example", Status: model.StatusIndexing}
	require.NoError(t, store.SaveSite(context.Background(), site))
	return store, site
}

func newPage(t *testing.T, store *storage.Store, siteID int64, path string) *model.Page {
	t.Helper()
	page := &model.Page{SiteID: siteID, Path: path, Code: 200}
	require.NoError(t, store.SavePage(context.Background(), page))
	return page
}

func TestApplyLemmas(t *testing.T) {
	ctx := context.Background()
	store, site := setup(t)
	builder := NewBuilder(store)

	page := newPage(t, store, site.ID, "/")
	require.NoError(t, builder.ApplyLemmas(ctx, page, map[string]int{"лес": 3, "река": 1}))

	lemma, err := store.FindLemmaBySiteAndText(ctx, site.ID, "лес")
	require.NoError(t, err)
	assert.Equal(t, 1, lemma.Frequency)

	posting, err := store.FindPostingByPageAndLemma(ctx, page.ID, lemma.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, posting.Rank)
}

func TestApplyLemmasTwiceOnSamePageCountsOnce(t *testing.T) {
	ctx := context.Background()
	store, site := setup(t)
	builder := NewBuilder(store)

	page := newPage(t, store, site.ID, "/")
	require.NoError(t, builder.ApplyLemmas(ctx, page, map[string]int{"лес": 3}))
	require.NoError(t, builder.ApplyLemmas(ctx, page, map[string]int{"лес": 5}))

	lemma, err := store.FindLemmaBySiteAndText(ctx, site.ID, "лес")
	require.NoError(t, err)
	assert.Equal(t, 1, lemma.Frequency)

	postings, err := store.FindPostingsByPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, 5.0, postings[0].Rank)
}

func TestApplyLemmasConcurrentPagesKeepFrequencies(t *testing.T) {
	ctx := context.Background()
	store, site := setup(t)
	builder := NewBuilder(store)

	const pages = 20
	var wg sync.WaitGroup
	errs := make(chan error, pages)
	for i := 0; i < pages; i++ {
		page := newPage(t, store, site.ID, fmt.Sprintf("/p%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- builder.ApplyLemmas(ctx, page, map[string]int{"общий": 1, fmt.Sprintf("свой%d", i): 2})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lemmas, err := store.FindLemmasBySite(ctx, site.ID, nil)
	require.NoError(t, err)
	for _, l := range lemmas {
		postings, err := store.FindPostingsByLemma(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, len(postings), l.Frequency, "lemma %q", l.Text)
	}

	shared, err := store.FindLemmaBySiteAndText(ctx, site.ID, "общий")
	require.NoError(t, err)
	assert.Equal(t, pages, shared.Frequency)
}

func TestApplyLemmasEmpty(t *testing.T) {
	store, site := setup(t)
	page := newPage(t, store, site.ID, "/")

	require.NoError(t, NewBuilder(store).ApplyLemmas(context.Background(), page, nil))

	n, err := store.CountLemmasBySite(context.Background(), site.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
