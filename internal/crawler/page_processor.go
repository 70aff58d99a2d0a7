package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"

	"github.com/masahif/sitesearch/internal/events"
	"github.com/masahif/sitesearch/internal/indexer"
	"github.com/masahif/sitesearch/internal/lemma"
	"github.com/masahif/sitesearch/internal/metrics"
	"github.com/masahif/sitesearch/internal/model"
	"github.com/masahif/sitesearch/internal/parser"
)

// PageResult is the outcome of processing one url
type PageResult struct {
	Page   *model.Page
	Links  []string // Absolute links found in the page, unfiltered
	Lemmas int      // Distinct lemmas indexed, 0 when extraction was skipped
}

// PageProcessor fetches one url, stores it as a page and indexes its text
type PageProcessor struct {
	fetcher    Fetcher
	store      model.Store
	lemmatizer lemma.Lemmatizer
	builder    *indexer.Builder
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewPageProcessor creates a page processor
func NewPageProcessor(fetcher Fetcher, store model.Store, lemmatizer lemma.Lemmatizer, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *PageProcessor {
	return &PageProcessor{
		fetcher:    fetcher,
		store:      store,
		lemmatizer: lemmatizer,
		builder:    indexer.NewBuilder(store),
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// Process fetches pageURL and replaces the page stored at path. Pages with
// status >= 400 and non-HTML pages are stored but not indexed. Lemma
// extraction failures are logged; only fetch and storage errors are returned.
func (p *PageProcessor) Process(ctx context.Context, site *model.Site, pageURL, path string) (*PageResult, error) {
	resp, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		p.metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	p.metrics.PagesFetchedTotal.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
	p.metrics.FetchDuration.Observe(resp.Duration.Seconds())

	page := &model.Page{
		SiteID:  site.ID,
		Path:    path,
		Code:    resp.StatusCode,
		Content: string(resp.Body),
	}
	if err := p.replacePage(ctx, page); err != nil {
		return nil, err
	}

	result := &PageResult{Page: page}
	if resp.StatusCode >= 400 || !isHTML(resp.ContentType) || len(resp.Body) == 0 {
		p.logger.Debug("Skipping extraction", "url", pageURL, "status_code", resp.StatusCode, "content_type", resp.ContentType)
		return result, nil
	}

	base := resp.FinalURL
	if base == "" {
		base = pageURL
	}
	htmlParser, err := parser.NewHTMLParser(base)
	if err != nil {
		p.logger.Warn("Failed to create parser", "url", pageURL, "error", err)
		return result, nil
	}
	parsed, err := htmlParser.Parse(resp.Body)
	if err != nil {
		p.logger.Warn("Failed to parse page", "url", pageURL, "error", err)
		return result, nil
	}
	result.Links = parsed.Links

	counts := p.lemmatizer.LemmaCounts(parsed.Text)
	if err := p.builder.ApplyLemmas(ctx, page, counts); err != nil {
		if !errors.Is(err, context.Canceled) {
			p.metrics.IndexErrorsTotal.WithLabelValues(site.URL).Inc()
			p.logger.Error("Failed to index page", "url", pageURL, "error", err)
		}
		return result, nil
	}
	result.Lemmas = len(counts)
	p.metrics.PagesIndexedTotal.WithLabelValues(site.URL).Inc()

	if err := p.publisher.Publish(ctx, events.Event{
		Type:       events.TypePageIndexed,
		Site:       site.URL,
		Path:       path,
		StatusCode: resp.StatusCode,
		Lemmas:     result.Lemmas,
	}); err != nil {
		p.logger.Warn("Failed to publish event", "type", events.TypePageIndexed, "error", err)
	}

	p.logger.Debug("Indexed page", "url", pageURL, "lemmas", result.Lemmas, "links", len(result.Links))
	return result, nil
}

// replacePage deletes the page previously stored at the same path, together
// with its postings, and saves page in its place
func (p *PageProcessor) replacePage(ctx context.Context, page *model.Page) error {
	err := p.store.WithinTx(ctx, func(tx model.Store) error {
		existing, err := tx.FindPageBySiteAndPath(ctx, page.SiteID, page.Path)
		switch {
		case err == nil:
			if err := tx.DeletePage(ctx, existing.ID); err != nil {
				return err
			}
		case !errors.Is(err, model.ErrNotFound):
			return err
		}
		return tx.SavePage(ctx, page)
	})
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.Path, err)
	}
	return nil
}

// isHTML reports whether contentType denotes an HTML document. A missing
// header is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
