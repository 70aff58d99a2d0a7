package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions, fetching each host's file once
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	cache     map[string]*robotstxt.RobotsData
	mu        sync.RWMutex
}

// NewRobotsChecker creates a checker that fetches robots.txt with client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Check reports whether rawURL may be fetched and the host's Crawl-delay.
// An unreachable or unreadable robots.txt allows everything.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (bool, time.Duration) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0
	}

	robots := r.robotsFor(ctx, u.Scheme, u.Host)
	if robots == nil {
		return true, 0
	}

	group := robots.FindGroup(r.userAgent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path), group.CrawlDelay
}

func (r *RobotsChecker) robotsFor(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	key := scheme + "://" + host

	r.mu.RLock()
	robots, exists := r.cache[key]
	r.mu.RUnlock()
	if exists {
		return robots
	}

	robots, ok := r.fetch(ctx, key+"/robots.txt")
	if !ok {
		// Cancelled lookups are retried by the next caller
		return nil
	}

	r.mu.Lock()
	r.cache[key] = robots
	r.mu.Unlock()
	return robots
}

// fetch returns the parsed file, nil when it is missing or unusable, and
// false when ctx ended before an answer
func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, bool) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, true
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, true
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, true
	}
	return robots, true
}
