package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker(t *testing.T) {
	robotsTxt := `
User-agent: *
Disallow: /cabinet/
Disallow: /drafts/
Allow: /drafts/published/
Crawl-delay: 2

User-agent: SiteSearch-Test
Disallow: /archive/
Crawl-delay: 1

User-agent: Yandex
Disallow: /news/
`

	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(robotsTxt))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "SiteSearch-Test")
	ctx := context.Background()

	generic := NewRobotsChecker(server.Client(), "OtherBot")
	if allowed, delay := generic.Check(ctx, server.URL+"/drafts/x"); allowed || delay != 2*time.Second {
		t.Errorf("Expected generic agent blocked from drafts with 2s delay, got %v %v", allowed, delay)
	}
	if allowed, _ := generic.Check(ctx, server.URL+"/drafts/published/x"); !allowed {
		t.Error("Expected longer allow rule to win for generic agent")
	}

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"home page", server.URL + "/", true},
		{"own group disallow", server.URL + "/archive/2019", false},
		{"wildcard group not merged", server.URL + "/cabinet/login", true},
		{"other agent rule ignored", server.URL + "/news/today", true},
		{"article", server.URL + "/articles/forest", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, _ := checker.Check(ctx, tt.url)
			if allowed != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, allowed)
			}
		})
	}

	_, delay := checker.Check(ctx, server.URL+"/")
	if delay != time.Second {
		t.Errorf("Expected crawl delay of 1s from the agent group, got %v", delay)
	}

	if robotsHits.Load() != 2 {
		t.Errorf("Expected robots.txt to be fetched once per checker, got %d", robotsHits.Load())
	}
}

func TestRobotsCheckerMissingFileAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "SiteSearch-Test")
	allowed, delay := checker.Check(context.Background(), server.URL+"/anything")
	if !allowed || delay != 0 {
		t.Errorf("Expected allowed with no delay, got %v %v", allowed, delay)
	}
}
