package crawler

import "context"

// Fetcher retrieves a single url
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// CacheInvalidator drops derived data, such as cached search results,
// after the index changed
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
