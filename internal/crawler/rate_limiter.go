package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests per host
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	limit    rate.Limit
}

// NewRateLimiter allows requestsPerSecond per host; zero or less disables limiting
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until a request to urlStr may proceed or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	return r.getLimiter(parsedURL.Host).Wait(ctx)
}

// SetHostDelay enforces at least delay between requests to host, as asked
// by a robots.txt Crawl-delay. It never loosens the configured rate.
func (r *RateLimiter) SetHostDelay(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	limit := rate.Every(delay)

	r.mu.Lock()
	defer r.mu.Unlock()

	if limit >= r.limit {
		return
	}
	if existing, ok := r.limiters[host]; ok {
		if existing.Limit() > limit {
			existing.SetLimit(limit)
		}
		return
	}
	r.limiters[host] = rate.NewLimiter(limit, 1)
}

func (r *RateLimiter) getLimiter(host string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[host]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(r.limit, 1)
	r.limiters[host] = limiter
	return limiter
}
