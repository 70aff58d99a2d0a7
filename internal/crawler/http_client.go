package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxRedirects bounds redirect chains; the final response is what gets stored
const maxRedirects = 10

// ClientConfig configures HTTPClient
type ClientConfig struct {
	UserAgent     string
	Referrer      string
	Timeout       time.Duration
	MaxBodySize   int64
	RateLimit     float64 // Requests per second per host, 0 = unlimited
	RespectRobots bool
}

// HTTPClient fetches pages with the configured identity, per-host rate
// limiting and optional robots.txt compliance
type HTTPClient struct {
	client      *http.Client
	userAgent   string
	referrer    string
	maxBodySize int64
	limiter     *RateLimiter
	robots      *RobotsChecker
}

var _ Fetcher = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	h := &HTTPClient{
		client:      client,
		userAgent:   cfg.UserAgent,
		referrer:    cfg.Referrer,
		maxBodySize: maxBody,
		limiter:     NewRateLimiter(cfg.RateLimit),
	}
	if cfg.RespectRobots {
		h.robots = NewRobotsChecker(client, cfg.UserAgent)
	}
	return h
}

// Fetch performs a GET request. Redirects are followed up to maxRedirects;
// FinalURL reports where the chain ended. HTTP error statuses come back in
// the Response with a nil error.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if h.robots != nil {
		allowed, delay := h.robots.Check(ctx, rawURL)
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if u, err := url.Parse(rawURL); err == nil {
			h.limiter.SetHostDelay(u.Host, delay)
		}
	}

	if err := h.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if h.referrer != "" {
		req.Header.Set("Referer", h.referrer)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Duration:    time.Since(start),
	}, nil
}

// Close releases idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
