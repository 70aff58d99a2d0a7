package crawler

import (
	"errors"
	"time"
)

const (
	// MaxDepth bounds link expansion; the root page is depth 0
	MaxDepth = 3

	// StopMessage is recorded on sites interrupted by Stop
	StopMessage = "indexing stopped by user"
)

// ErrDisallowed is returned by Fetch for urls excluded by robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Response is the outcome of fetching one url. HTTP error statuses are
// reported here, not as errors.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	FinalURL    string // After following redirects
	Duration    time.Duration
}
