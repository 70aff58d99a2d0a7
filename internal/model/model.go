// Package model defines the indexed entities and the store contract the
// crawler, index builder and search engine are written against.
package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by single-row lookups that match nothing
var ErrNotFound = errors.New("record not found")

// SiteStatus is the indexing state of a site
type SiteStatus string

const (
	StatusIndexing SiteStatus = "INDEXING"
	StatusIndexed  SiteStatus = "INDEXED"
	StatusFailed   SiteStatus = "FAILED"
)

// Site is one configured crawl root
type Site struct {
	ID         int64
	URL        string
	Name       string
	Status     SiteStatus
	StatusTime time.Time
	LastError  string
}

// Page is a fetched document, addressed by its root-relative path
type Page struct {
	ID      int64
	SiteID  int64
	Path    string
	Code    int
	Content string
}

// Lemma is a normalized word form. Frequency counts the pages containing it.
type Lemma struct {
	ID        int64
	SiteID    int64
	Text      string
	Frequency int
}

// Posting links a page to a lemma. Rank is the occurrence count in the page.
type Posting struct {
	ID      int64
	PageID  int64
	LemmaID int64
	Rank    float64
}
