// Package search answers ranked queries over the per-site lemma index.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/lemma"
	"github.com/masahif/sitesearch/internal/model"
	"github.com/masahif/sitesearch/internal/parser"
)

// Query is one search request. Site, when set, restricts the search to the
// site with that root url.
type Query struct {
	Text   string
	Site   string
	Offset int
	Limit  int
}

// Result is one matching page
type Result struct {
	Site      string  `json:"site"`
	SiteName  string  `json:"siteName"`
	URI       string  `json:"uri"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// Response is a page of results. Count is the number of results before
// offset and limit were applied.
type Response struct {
	Count int      `json:"count"`
	Data  []Result `json:"data"`
}

// Searcher runs queries
type Searcher interface {
	Search(ctx context.Context, q Query) (*Response, error)
}

// Engine searches the store directly
type Engine struct {
	store        model.Store
	lemmatizer   lemma.Lemmatizer
	ratio        float64
	defaultLimit int
	maxLimit     int
}

var _ Searcher = (*Engine)(nil)

// NewEngine creates a search engine
func NewEngine(store model.Store, lemmatizer lemma.Lemmatizer, cfg config.SearchConfig) *Engine {
	e := &Engine{
		store:        store,
		lemmatizer:   lemmatizer,
		ratio:        cfg.TooFrequentRatio,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
	if e.ratio <= 0 || e.ratio > 1 {
		e.ratio = 0.8
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = 20
	}
	if e.maxLimit < e.defaultLimit {
		e.maxLimit = e.defaultLimit
	}
	return e
}

// Normalize applies the default limit and bounds to q
func (e *Engine) Normalize(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Site = strings.TrimRight(strings.TrimSpace(q.Site), "/")
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = e.defaultLimit
	}
	if q.Limit > e.maxLimit {
		q.Limit = e.maxLimit
	}
	return q
}

// Search implements Searcher. Blank queries, unknown sites and sites without
// an index are input errors.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	q = e.Normalize(q)
	if q.Text == "" {
		return nil, apperr.Input("search query is empty")
	}

	lemmas := e.lemmatizer.LemmaSet(q.Text)
	if len(lemmas) == 0 {
		return &Response{Data: []Result{}}, nil
	}

	sites, err := e.scope(ctx, q.Site)
	if err != nil {
		return nil, err
	}

	var all []Result
	for i := range sites {
		results, err := e.searchSite(ctx, &sites[i], lemmas)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Relevance > all[j].Relevance
	})

	resp := &Response{Count: len(all), Data: []Result{}}
	if q.Offset < len(all) {
		end := min(len(all), q.Offset+q.Limit)
		resp.Data = all[q.Offset:end]
	}
	return resp, nil
}

func (e *Engine) scope(ctx context.Context, siteURL string) ([]model.Site, error) {
	if siteURL == "" {
		sites, err := e.store.FindAllSites(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sites: %w", err)
		}
		return sites, nil
	}

	site, err := e.store.FindSiteByURL(ctx, siteURL)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.Input("site not found: %s", siteURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site %s: %w", siteURL, err)
	}
	return []model.Site{*site}, nil
}

// searchSite matches lemmas against one site, with relevance normalized by
// the best page of that site
func (e *Engine) searchSite(ctx context.Context, site *model.Site, lemmas []string) ([]Result, error) {
	pageCount, err := e.store.CountPagesBySite(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages of %s: %w", site.URL, err)
	}
	lemmaCount, err := e.store.CountLemmasBySite(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lemmas of %s: %w", site.URL, err)
	}
	if pageCount == 0 || lemmaCount == 0 {
		return nil, apperr.Input("index for site %s is not built yet", site.URL)
	}

	rows, err := e.store.FindLemmasBySite(ctx, site.ID, lemmas)
	if err != nil {
		return nil, fmt.Errorf("failed to load lemmas of %s: %w", site.URL, err)
	}

	threshold := int(math.Floor(float64(pageCount) * e.ratio))
	selective := rows[:0]
	for _, l := range rows {
		if l.Frequency < threshold {
			selective = append(selective, l)
		}
	}
	if len(selective) == 0 {
		return nil, nil
	}
	sort.SliceStable(selective, func(i, j int) bool {
		return selective[i].Frequency < selective[j].Frequency
	})

	relevance, err := e.intersect(ctx, selective)
	if err != nil {
		return nil, err
	}
	if len(relevance) == 0 {
		return nil, nil
	}

	maxRel := 0.0
	for _, rel := range relevance {
		maxRel = max(maxRel, rel)
	}
	if maxRel == 0 {
		maxRel = 1
	}

	results := make([]Result, 0, len(relevance))
	for pageID, rel := range relevance {
		page, err := e.store.FindPageByID(ctx, pageID)
		if err != nil {
			return nil, fmt.Errorf("failed to load page %d: %w", pageID, err)
		}
		results = append(results, Result{
			Site:      site.URL,
			SiteName:  site.Name,
			URI:       page.Path,
			Title:     parser.ExtractTitle(page.Content),
			Snippet:   Snippet(parser.ExtractText(page.Content), lemmas),
			Relevance: rel / maxRel,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].URI < results[j].URI
	})
	return results, nil
}

// intersect returns the pages holding every lemma with the sum of their
// ranks. Lemmas must be sorted rarest first; it stops once the set is empty.
func (e *Engine) intersect(ctx context.Context, lemmas []model.Lemma) (map[int64]float64, error) {
	var relevance map[int64]float64
	for _, l := range lemmas {
		postings, err := e.store.FindPostingsByLemma(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load postings of %q: %w", l.Text, err)
		}

		ranks := make(map[int64]float64, len(postings))
		for _, p := range postings {
			ranks[p.PageID] = p.Rank
		}

		if relevance == nil {
			relevance = ranks
		} else {
			for pageID := range relevance {
				rank, ok := ranks[pageID]
				if !ok {
					delete(relevance, pageID)
					continue
				}
				relevance[pageID] += rank
			}
		}
		if len(relevance) == 0 {
			return nil, nil
		}
	}
	return relevance, nil
}
