// Package events publishes crawl lifecycle events: site status changes and
// indexed pages.
package events

import (
	"context"
	"time"
)

const (
	TypeSiteStatus  = "site.status"
	TypePageIndexed = "page.indexed"
)

// Event is one crawl lifecycle notification. Site doubles as the partition key.
type Event struct {
	Type       string    `json:"type"`
	Site       string    `json:"site"`
	RunID      string    `json:"run_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	Path       string    `json:"path,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Lemmas     int       `json:"lemmas,omitempty"`
	Time       time.Time `json:"time"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
