package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/masahif/sitesearch/internal/logging"
	"github.com/masahif/sitesearch/internal/metrics"
)

// NewRouter builds the HTTP handler.
//
// Route table:
//
//	GET  /api/startIndexing
//	GET  /api/stopIndexing
//	POST /api/indexPage
//	GET  /api/statistics
//	GET  /api/search
//	GET  /health
//	GET  /metrics          (when m is not nil)
//
// Middleware chain (outermost first):
//
//	RequestID → Recoverer → Metrics → RequestLogger → handler
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(Metrics(m))
	}
	r.Use(RequestLogger)

	r.Get("/health", h.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/startIndexing", h.StartIndexing)
		r.Get("/stopIndexing", h.StopIndexing)
		r.Post("/indexPage", h.IndexPage)
		r.Get("/statistics", h.Statistics)
		r.Get("/search", h.Search)
	})

	return r
}

// Metrics records request count, latency and in-flight requests, labelled
// by the matched route pattern
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RequestLogger logs every request at debug level with its request id
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context()).Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
