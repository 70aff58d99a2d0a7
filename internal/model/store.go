package model

import "context"

// SiteStore persists sites
type SiteStore interface {
	FindSiteByURL(ctx context.Context, url string) (*Site, error)
	FindAllSites(ctx context.Context) ([]Site, error)
	// SaveSite inserts when ID is zero and updates otherwise
	SaveSite(ctx context.Context, site *Site) error
	// DeleteSite removes the site together with its pages, lemmas and postings
	DeleteSite(ctx context.Context, id int64) error
}

// PageStore persists pages
type PageStore interface {
	FindPageByID(ctx context.Context, id int64) (*Page, error)
	FindPageBySiteAndPath(ctx context.Context, siteID int64, path string) (*Page, error)
	ExistsPageBySiteAndPath(ctx context.Context, siteID int64, path string) (bool, error)
	FindAllPagesBySite(ctx context.Context, siteID int64) ([]Page, error)
	CountPagesBySite(ctx context.Context, siteID int64) (int, error)
	SavePage(ctx context.Context, page *Page) error
	// DeletePage removes the page and its postings
	DeletePage(ctx context.Context, id int64) error
	DeleteAllPagesBySite(ctx context.Context, siteID int64) error
}

// LemmaStore persists lemmas
type LemmaStore interface {
	FindLemmaBySiteAndText(ctx context.Context, siteID int64, text string) (*Lemma, error)
	// FindOrCreateLemma returns the lemma row, inserting it with frequency 0 if missing
	FindOrCreateLemma(ctx context.Context, siteID int64, text string) (*Lemma, error)
	// FindLemmasBySite returns the site's lemmas, restricted to texts when non-nil
	FindLemmasBySite(ctx context.Context, siteID int64, texts []string) ([]Lemma, error)
	CountLemmasBySite(ctx context.Context, siteID int64) (int, error)
	SaveLemma(ctx context.Context, lemma *Lemma) error
	// IncrementLemmaFrequency adds delta to frequency in a single statement
	IncrementLemmaFrequency(ctx context.Context, id int64, delta int) error
	DeleteAllLemmasBySite(ctx context.Context, siteID int64) error
}

// PostingStore persists postings. Deleting postings keeps lemma frequencies
// equal to their posting counts and drops lemmas that reach zero.
type PostingStore interface {
	FindPostingsByPage(ctx context.Context, pageID int64) ([]Posting, error)
	FindPostingsByLemma(ctx context.Context, lemmaID int64) ([]Posting, error)
	FindPostingByPageAndLemma(ctx context.Context, pageID, lemmaID int64) (*Posting, error)
	// SavePosting upserts on (page, lemma)
	SavePosting(ctx context.Context, posting *Posting) error
	DeleteAllPostingsByPage(ctx context.Context, pageID int64) error
	DeleteAllPostingsBySite(ctx context.Context, siteID int64) error
}

// Store is the full entity store
type Store interface {
	SiteStore
	PageStore
	LemmaStore
	PostingStore

	// WithinTx runs fn in a transaction. The Store passed to fn is bound to
	// it; fn must not use the outer store.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
