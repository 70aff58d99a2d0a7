// Package metrics defines the Prometheus collectors for the crawler, the
// search engine and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	PagesFetchedTotal *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	PagesIndexedTotal *prometheus.CounterVec
	IndexErrorsTotal  *prometheus.CounterVec
	SitesIndexing     prometheus.Gauge
	CrawlRunsTotal    *prometheus.CounterVec

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitesearch_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitesearch_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PagesFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_pages_fetched_total",
				Help: "Pages fetched by the crawler by status class (2xx, 3xx, 4xx, 5xx, error).",
			},
			[]string{"status_class"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitesearch_fetch_duration_seconds",
				Help:    "Page fetch latency in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
		),
		PagesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_pages_indexed_total",
				Help: "Pages whose lemmas were written to the index, by site.",
			},
			[]string{"site"},
		),
		IndexErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_index_errors_total",
				Help: "Pages whose extraction or indexing failed, by site.",
			},
			[]string{"site"},
		),
		SitesIndexing: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitesearch_sites_indexing",
				Help: "Number of sites currently being crawled.",
			},
		),
		CrawlRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_site_crawls_total",
				Help: "Finished site crawls by final status.",
			},
			[]string{"status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesearch_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, input_error, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitesearch_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitesearch_search_results_count",
				Help:    "Number of matching pages per search query, before paging.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitesearch_search_cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitesearch_search_cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PagesFetchedTotal,
		m.FetchDuration,
		m.PagesIndexedTotal,
		m.IndexErrorsTotal,
		m.SitesIndexing,
		m.CrawlRunsTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// NewNop returns collectors registered with a private registry, for
// components constructed without metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the scrape handler for the registry the metrics live in
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status code for the fetch counter
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "other"
	}
}
