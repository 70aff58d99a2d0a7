// Package crawler implements the site crawler: a per-site, depth-bounded,
// deduplicated and cancellable recursive fetch tree that stores every page
// and feeds its text to the index builder.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/events"
	"github.com/masahif/sitesearch/internal/lemma"
	"github.com/masahif/sitesearch/internal/logging"
	"github.com/masahif/sitesearch/internal/metrics"
	"github.com/masahif/sitesearch/internal/model"
)

// statusTouchInterval throttles statusTime updates while a site is crawled
const statusTouchInterval = time.Second

// Option configures a Crawler
type Option func(*Crawler)

// WithFetcher replaces the HTTP client built from the configuration
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithLemmatizer replaces the Russian lemmatizer
func WithLemmatizer(l lemma.Lemmatizer) Option {
	return func(c *Crawler) { c.lemmatizer = l }
}

// WithPublisher sets the crawl event publisher
func WithPublisher(p events.Publisher) Option {
	return func(c *Crawler) { c.publisher = p }
}

// WithMetrics sets the collectors the crawler reports to
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// WithInvalidator sets what to invalidate whenever the index changes
func WithInvalidator(i CacheInvalidator) Option {
	return func(c *Crawler) { c.invalidator = i }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// Crawler orchestrates indexing of the configured sites. Start and Stop are
// mutually exclusive; IndexPage may run at any time.
type Crawler struct {
	cfg         *config.Config
	store       model.Store
	fetcher     Fetcher
	lemmatizer  lemma.Lemmatizer
	publisher   events.Publisher
	metrics     *metrics.Metrics
	invalidator CacheInvalidator
	logger      *slog.Logger
	exclude     []*regexp.Regexp
	processor   *PageProcessor

	// mu guards the run lifecycle; active is read without it by crawl tasks
	mu     sync.Mutex
	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	runID  string

	// Status writes are serialized per site url
	locksMu   sync.Mutex
	siteLocks map[string]*sync.Mutex
}

// New creates a crawler for cfg, which must already be validated
func New(cfg *config.Config, store model.Store, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		cfg:       cfg,
		store:     store,
		publisher: events.Nop{},
		siteLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPClient(ClientConfig{
			UserAgent:     cfg.UserAgent,
			Referrer:      cfg.Referrer,
			Timeout:       cfg.RequestTimeout,
			MaxBodySize:   cfg.MaxBodySize,
			RateLimit:     cfg.RateLimit,
			RespectRobots: cfg.RespectRobots,
		})
	}
	if c.lemmatizer == nil {
		c.lemmatizer = lemma.NewRussian()
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNop()
	}
	if c.logger == nil {
		c.logger = logging.WithComponent("crawler")
	}

	for _, p := range cfg.ExcludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		c.exclude = append(c.exclude, re)
	}

	c.processor = NewPageProcessor(c.fetcher, store, c.lemmatizer, c.publisher, c.metrics, c.logger)
	return c, nil
}

// IsIndexing reports whether a crawl started by Start is in progress
func (c *Crawler) IsIndexing() bool {
	return c.active.Load()
}

// Start recreates every configured site in status INDEXING and crawls them
// in the background, one task per site. It returns apperr.ErrAlreadyRunning
// if a crawl is in progress.
func (c *Crawler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active.Load() && !closed(c.done) {
		return apperr.ErrAlreadyRunning
	}

	// A stopped run may still be draining; its writes must not land on the
	// sites recreated below
	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.cancel()
	}

	runID := uuid.NewString()
	runs := make([]*siteRun, 0, len(c.cfg.Sites))
	for _, s := range c.cfg.Sites {
		site, err := c.resetSite(ctx, s, runID)
		if err != nil {
			err = fmt.Errorf("failed to reset site %s: %w", s.URL, err)
			c.abortStart(ctx, runID, runs, err)
			return err
		}
		runs = append(runs, newSiteRun(site, c.cfg.CrawlWorkers))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel, c.done, c.runID = cancel, done, runID
	c.active.Store(true)
	c.invalidate(ctx)

	c.logger.Info("Indexing started", "run_id", runID, "sites", len(runs))
	go c.run(runCtx, runID, runs, done)
	return nil
}

// abortStart marks the sites already recreated by a failed Start as FAILED,
// since no run will crawl them
func (c *Crawler) abortStart(ctx context.Context, runID string, runs []*siteRun, cause error) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range runs {
		written, err := c.setStatus(ctx, r.site.URL, true, model.StatusFailed, cause.Error())
		if err != nil {
			c.logger.Error("Failed to mark site failed", "site", r.site.URL, "error", err)
			continue
		}
		if written {
			c.publishStatus(ctx, r.site.URL, runID, model.StatusFailed, cause.Error())
		}
	}
	if len(runs) > 0 {
		c.invalidate(ctx)
	}
	c.logger.Error("Indexing not started", "run_id", runID, "error", cause)
}

// Stop cancels the running crawl and marks every site still INDEXING as
// FAILED with StopMessage. It does not wait for in-flight tasks to drain;
// use Wait for that. It returns apperr.ErrNotRunning if no crawl is active.
func (c *Crawler) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active.Load() {
		return apperr.ErrNotRunning
	}
	c.active.Store(false)
	c.cancel()

	sites, err := c.store.FindAllSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sites: %w", err)
	}
	for _, site := range sites {
		if site.Status != model.StatusIndexing {
			continue
		}
		if _, err := c.setStatus(ctx, site.URL, true, model.StatusFailed, StopMessage); err != nil {
			c.logger.Error("Failed to mark site stopped", "site", site.URL, "error", err)
		}
	}
	c.metrics.CrawlRunsTotal.WithLabelValues("stopped").Inc()
	c.logger.Info("Indexing stopped", "run_id", c.runID)
	return nil
}

// Wait blocks until the current crawl, if any, has fully drained
func (c *Crawler) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IndexPage fetches and re-indexes a single url synchronously. The url must
// fall under a configured site. On failure the owning site is marked FAILED.
func (c *Crawler) IndexPage(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperr.Input("url is empty")
	}

	pageURL := NormalizeURL(rawURL)
	cfgSite, ok := c.cfg.SiteFor(pageURL)
	if !ok {
		return apperr.Input("this page is outside the sites listed in the configuration: %s", rawURL)
	}
	path, ok := PagePath(cfgSite.URL, pageURL)
	if !ok {
		return apperr.Input("this page is outside the sites listed in the configuration: %s", rawURL)
	}

	site, err := c.findOrCreateSite(ctx, cfgSite)
	if err != nil {
		return fmt.Errorf("failed to resolve site %s: %w", cfgSite.URL, err)
	}

	fetchURL := pageURL
	if path == "/" {
		fetchURL = cfgSite.URL + "/"
	}
	result, err := c.processor.Process(ctx, site, fetchURL, path)
	if err != nil {
		if ctx.Err() != nil {
			// The caller went away; the site itself did not fail
			c.logger.Warn("Page indexing abandoned", "url", pageURL, "error", err)
			return err
		}
		if _, serr := c.setStatus(context.WithoutCancel(ctx), site.URL, false, model.StatusFailed, err.Error()); serr != nil {
			c.logger.Error("Failed to mark site failed", "site", site.URL, "error", serr)
		}
		c.publishStatus(ctx, site.URL, "", model.StatusFailed, err.Error())
		return err
	}

	c.invalidate(ctx)
	c.logger.Info("Page indexed", "url", pageURL, "status_code", result.Page.Code, "lemmas", result.Lemmas)
	return nil
}

// run crawls all sites on a pool sized to the number of sites
func (c *Crawler) run(ctx context.Context, runID string, runs []*siteRun, done chan struct{}) {
	g := new(errgroup.Group)
	g.SetLimit(max(1, len(runs)))
	for _, r := range runs {
		g.Go(func() error {
			c.crawlSite(ctx, runID, r)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	c.invalidate(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == done {
		if c.active.Load() {
			c.metrics.CrawlRunsTotal.WithLabelValues("completed").Inc()
			c.logger.Info("Indexing completed", "run_id", runID)
		}
		c.active.Store(false)
		c.cancel()
	}
}

// crawlSite runs the recursive crawl of one site and records the outcome
func (c *Crawler) crawlSite(ctx context.Context, runID string, r *siteRun) {
	c.metrics.SitesIndexing.Inc()
	defer c.metrics.SitesIndexing.Dec()

	start := time.Now()
	logger := c.logger.With("site", r.site.URL, "run_id", runID)
	logger.Info("Site crawl started")

	rootErr := c.visit(ctx, r, r.root+"/", 0)

	// Stop records the status of interrupted sites
	if ctx.Err() != nil {
		logger.Info("Site crawl interrupted", "pages", r.pages.Load())
		return
	}

	status, lastErr := model.StatusIndexed, ""
	if rootErr != nil {
		status, lastErr = model.StatusFailed, rootErr.Error()
	}

	changed, err := c.setStatus(context.WithoutCancel(ctx), r.site.URL, true, status, lastErr)
	if err != nil {
		logger.Error("Failed to record site status", "status", status, "error", err)
		return
	}
	if changed {
		c.publishStatus(ctx, r.site.URL, runID, status, lastErr)
	}
	logger.Info("Site crawl finished", "status", status, "pages", r.pages.Load(), "duration", time.Since(start))
}

// visit is one recursive crawl task. Only a failure of the root page is
// returned; failures below it stop that subtree.
func (c *Crawler) visit(ctx context.Context, r *siteRun, pageURL string, depth int) error {
	if !c.active.Load() || ctx.Err() != nil || depth >= MaxDepth {
		return nil
	}

	norm := NormalizeURL(pageURL)
	path, ok := PagePath(r.root, norm)
	if !ok {
		return nil
	}
	if !r.visited.Add(norm) {
		return nil
	}

	fetchURL := norm
	if path == "/" {
		fetchURL = r.root + "/"
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	result, err := c.processor.Process(ctx, r.site, fetchURL, path)
	r.sem.Release(1)

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if depth == 0 {
			return err
		}
		c.logger.Warn("Failed to process page", "site", r.site.URL, "url", fetchURL, "error", err)
		return nil
	}
	r.pages.Add(1)
	c.touchStatus(ctx, r)

	if depth+1 >= MaxDepth {
		return nil
	}
	links := c.filterLinks(r, result.Links)
	if len(links) == 0 {
		return nil
	}

	if c.cfg.RequestDelay > 0 {
		timer := time.NewTimer(c.cfg.RequestDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	var wg sync.WaitGroup
	for _, link := range links {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.visit(ctx, r, link, depth+1)
		}()
	}
	wg.Wait()
	return nil
}

// filterLinks keeps normalized links on the root's host that are not
// excluded and not yet visited
func (c *Crawler) filterLinks(r *siteRun, links []string) []string {
	kept := make([]string, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		norm := NormalizeURL(link)
		if seen[norm] || !SameHost(r.root, norm) || c.isExcluded(norm) || r.visited.Contains(norm) {
			continue
		}
		seen[norm] = true
		kept = append(kept, norm)
	}
	return kept
}

func (c *Crawler) isExcluded(u string) bool {
	for _, re := range c.exclude {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// touchStatus advances statusTime of a site that is still INDEXING, at most
// once per statusTouchInterval
func (c *Crawler) touchStatus(ctx context.Context, r *siteRun) {
	now := time.Now().UnixMilli()
	last := r.lastTouch.Load()
	if now-last < statusTouchInterval.Milliseconds() || !r.lastTouch.CompareAndSwap(last, now) {
		return
	}
	if _, err := c.setStatus(context.WithoutCancel(ctx), r.site.URL, true, model.StatusIndexing, ""); err != nil {
		c.logger.Warn("Failed to update status time", "site", r.site.URL, "error", err)
	}
}

// setStatus writes status and lastErr on the site stored under siteURL and
// stamps statusTime. With onlyIndexing set the write happens only if the
// site is still INDEXING. It reports whether the row was written.
func (c *Crawler) setStatus(ctx context.Context, siteURL string, onlyIndexing bool, status model.SiteStatus, lastErr string) (bool, error) {
	lock := c.siteLock(siteURL)
	lock.Lock()
	defer lock.Unlock()

	site, err := c.store.FindSiteByURL(ctx, siteURL)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if onlyIndexing && site.Status != model.StatusIndexing {
		return false, nil
	}

	site.Status = status
	site.LastError = lastErr
	site.StatusTime = time.Now()
	if err := c.store.SaveSite(ctx, site); err != nil {
		return false, err
	}
	return true, nil
}

// resetSite deletes the stored site with the same url, cascading its pages
// and lemmas, and creates it afresh in status INDEXING
func (c *Crawler) resetSite(ctx context.Context, s config.Site, runID string) (*model.Site, error) {
	lock := c.siteLock(s.URL)
	lock.Lock()
	defer lock.Unlock()

	existing, err := c.store.FindSiteByURL(ctx, s.URL)
	switch {
	case err == nil:
		if err := c.store.DeleteSite(ctx, existing.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	site := &model.Site{
		URL:        s.URL,
		Name:       s.Name,
		Status:     model.StatusIndexing,
		StatusTime: time.Now(),
	}
	if err := c.store.SaveSite(ctx, site); err != nil {
		return nil, err
	}
	c.publishStatus(ctx, site.URL, runID, model.StatusIndexing, "")
	return site, nil
}

// findOrCreateSite returns the stored site for s, creating it as INDEXED
func (c *Crawler) findOrCreateSite(ctx context.Context, s config.Site) (*model.Site, error) {
	lock := c.siteLock(s.URL)
	lock.Lock()
	defer lock.Unlock()

	site, err := c.store.FindSiteByURL(ctx, s.URL)
	if err == nil {
		return site, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	site = &model.Site{
		URL:        s.URL,
		Name:       s.Name,
		Status:     model.StatusIndexed,
		StatusTime: time.Now(),
	}
	if err := c.store.SaveSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

func (c *Crawler) siteLock(siteURL string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	lock, ok := c.siteLocks[siteURL]
	if !ok {
		lock = &sync.Mutex{}
		c.siteLocks[siteURL] = lock
	}
	return lock
}

func (c *Crawler) publishStatus(ctx context.Context, siteURL, runID string, status model.SiteStatus, lastErr string) {
	err := c.publisher.Publish(context.WithoutCancel(ctx), events.Event{
		Type:   events.TypeSiteStatus,
		Site:   siteURL,
		RunID:  runID,
		Status: string(status),
		Error:  lastErr,
	})
	if err != nil {
		c.logger.Warn("Failed to publish event", "type", events.TypeSiteStatus, "error", err)
	}
}

func (c *Crawler) invalidate(ctx context.Context) {
	if c.invalidator == nil {
		return
	}
	if err := c.invalidator.Invalidate(ctx); err != nil {
		c.logger.Warn("Failed to invalidate search cache", "error", err)
	}
}

func closed(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
