package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClientConfig() ClientConfig {
	return ClientConfig{
		UserAgent: "SiteSearch-Test/1.0",
		Referrer:  "https://www.google.com",
		Timeout:   5 * time.Second,
	}
}

func TestHTTPClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "SiteSearch-Test/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Referer") != "https://www.google.com" {
			t.Errorf("unexpected referrer %q", r.Header.Get("Referer"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Привет</body></html>"))
	}))
	defer server.Close()

	client := NewHTTPClient(testClientConfig())
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "Привет") {
		t.Errorf("Unexpected body %q", resp.Body)
	}
	if !strings.HasPrefix(resp.ContentType, "text/html") {
		t.Errorf("Unexpected content type %q", resp.ContentType)
	}
}

func TestHTTPClientReturnsErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(testClientConfig()).Fetch(context.Background(), server.URL+"/missing")
	if err != nil {
		t.Fatalf("HTTP error status must not be an error, got %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTPClientFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved here"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewHTTPClient(testClientConfig())

	resp, err := client.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if resp.FinalURL != server.URL+"/new" {
		t.Errorf("Expected final url %s/new, got %s", server.URL, resp.FinalURL)
	}
	if string(resp.Body) != "moved here" {
		t.Errorf("Unexpected body %q", resp.Body)
	}

	if _, err := client.Fetch(context.Background(), server.URL+"/loop"); err == nil {
		t.Error("Expected error for redirect loop")
	}
}

func TestHTTPClientLimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.MaxBodySize = 100
	resp, err := NewHTTPClient(cfg).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("Expected body truncated to 100 bytes, got %d", len(resp.Body))
	}
}

func TestHTTPClientCancelledContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(testClientConfig()).Fetch(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Cancelled fetch reached the server %d times", hits.Load())
	}
}

func TestHTTPClientRespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.RespectRobots = true
	client := NewHTTPClient(cfg)

	if _, err := client.Fetch(context.Background(), server.URL+"/public"); err != nil {
		t.Errorf("public page should be allowed: %v", err)
	}
	if _, err := client.Fetch(context.Background(), server.URL+"/private/page"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
}
