// Package api exposes indexing control, statistics and search over HTTP.
// Every response is JSON with a boolean "result" and, on failure, "error".
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/logging"
	"github.com/masahif/sitesearch/internal/search"
	"github.com/masahif/sitesearch/internal/stats"
)

// Indexer controls crawling
type Indexer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IndexPage(ctx context.Context, url string) error
}

// StatsProvider reports index statistics
type StatsProvider interface {
	Statistics(ctx context.Context) (*stats.Statistics, error)
}

// Handler serves the API endpoints
type Handler struct {
	indexer  Indexer
	searcher search.Searcher
	stats    StatsProvider
	logger   *slog.Logger
}

// NewHandler creates the API handler
func NewHandler(indexer Indexer, searcher search.Searcher, statsProvider StatsProvider) *Handler {
	return &Handler{
		indexer:  indexer,
		searcher: searcher,
		stats:    statsProvider,
		logger:   logging.WithComponent("api"),
	}
}

type resultResponse struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

type statisticsResponse struct {
	Result     bool              `json:"result"`
	Statistics *stats.Statistics `json:"statistics"`
}

type searchResponse struct {
	Result bool            `json:"result"`
	Count  int             `json:"count"`
	Data   []search.Result `json:"data"`
}

// StartIndexing handles GET /api/startIndexing
func (h *Handler) StartIndexing(w http.ResponseWriter, r *http.Request) {
	if err := h.indexer.Start(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

// StopIndexing handles GET /api/stopIndexing
func (h *Handler) StopIndexing(w http.ResponseWriter, r *http.Request) {
	if err := h.indexer.Stop(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

// IndexPage handles POST /api/indexPage. The url comes from the form body
// or the query string.
func (h *Handler) IndexPage(w http.ResponseWriter, r *http.Request) {
	if err := h.indexer.IndexPage(r.Context(), r.FormValue("url")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

// Statistics handles GET /api/statistics
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Statistics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statisticsResponse{Result: true, Statistics: st})
}

// Search handles GET /api/search?query=&site=&offset=&limit=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	offset, err := intParam(params.Get("offset"), 0)
	if err != nil {
		h.writeError(w, r, apperr.Input("offset must be an integer"))
		return
	}
	limit, err := intParam(params.Get("limit"), 0)
	if err != nil {
		h.writeError(w, r, apperr.Input("limit must be an integer"))
		return
	}

	resp, err := h.searcher.Search(r.Context(), search.Query{
		Text:   params.Get("query"),
		Site:   params.Get("site"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("search completed",
		"query", params.Get("query"),
		"count", resp.Count,
		"returned", len(resp.Data),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{Result: true, Count: resp.Count, Data: resp.Data})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatusCode(err)
	message := apperr.Message(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error: " + err.Error()
	}
	h.writeJSON(w, status, resultResponse{Result: false, Error: message})
}
