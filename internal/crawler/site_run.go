package crawler

import (
	"strings"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/masahif/sitesearch/internal/model"
)

// siteRun is the shared state of one site's crawl tree
type siteRun struct {
	site    *model.Site
	root    string
	visited *VisitedSet
	// sem bounds concurrent fetches; it is released before children spawn
	sem       *semaphore.Weighted
	pages     atomic.Int64
	lastTouch atomic.Int64 // unix millis of the last statusTime update
}

func newSiteRun(site *model.Site, workers int) *siteRun {
	return &siteRun{
		site:    site,
		root:    strings.TrimRight(site.URL, "/"),
		visited: NewVisitedSet(),
		sem:     semaphore.NewWeighted(int64(max(1, workers))),
	}
}
