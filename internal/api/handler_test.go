package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/metrics"
	"github.com/masahif/sitesearch/internal/search"
	"github.com/masahif/sitesearch/internal/stats"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeIndexer struct {
	startErr error
	stopErr  error
	pageErr  error
	pageURL  string
}

func (f *fakeIndexer) Start(context.Context) error { return f.startErr }
func (f *fakeIndexer) Stop(context.Context) error  { return f.stopErr }
func (f *fakeIndexer) IndexPage(_ context.Context, u string) error {
	f.pageURL = u
	return f.pageErr
}

type fakeSearcher struct {
	got  search.Query
	resp *search.Response
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) (*search.Response, error) {
	f.got = q
	return f.resp, f.err
}

type fakeStats struct {
	st  *stats.Statistics
	err error
}

func (f fakeStats) Statistics(context.Context) (*stats.Statistics, error) { return f.st, f.err }

type testServer struct {
	indexer  *fakeIndexer
	searcher *fakeSearcher
	metrics  *metrics.Metrics
	handler  http.Handler
}

func newTestServer(st fakeStats) *testServer {
	ts := &testServer{
		indexer:  &fakeIndexer{},
		searcher: &fakeSearcher{resp: &search.Response{Data: []search.Result{}}},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	ts.handler = NewRouter(NewHandler(ts.indexer, ts.searcher, st), ts.metrics)
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestStartAndStopIndexing(t *testing.T) {
	ts := newTestServer(fakeStats{})

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/startIndexing", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"result": true}, body)

	ts.indexer.startErr = apperr.ErrAlreadyRunning
	rec, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/startIndexing", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["result"])
	assert.Equal(t, "indexing is already running", body["error"])

	ts.indexer.stopErr = apperr.ErrNotRunning
	rec, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/stopIndexing", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "indexing is not running", body["error"])
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(fakeStats{})

	form := url.Values{"url": {"https://a.com/news"}}
	req := httptest.NewRequest(http.MethodPost, "/api/indexPage", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, body := ts.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])
	assert.Equal(t, "https://a.com/news", ts.indexer.pageURL)

	ts.indexer.pageErr = apperr.Input("this page is outside the sites listed in the configuration: %s", "https://b.com")
	rec, body = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/indexPage?url=https://b.com", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "this page is outside the sites listed in the configuration: https://b.com", body["error"])
	assert.Equal(t, "https://b.com", ts.indexer.pageURL)

	ts.indexer.pageErr = errors.New("failed to fetch https://a.com: connection refused")
	rec, body = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/indexPage?url=https://a.com", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "connection refused")

	rec, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/indexPage?url=https://a.com", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatistics(t *testing.T) {
	ts := newTestServer(fakeStats{st: &stats.Statistics{
		Total: stats.Total{Sites: 1, Pages: 3, Lemmas: 10, Indexing: true},
		Detailed: []stats.Detail{{
			URL: "https://a.com", Name: "A", Status: "INDEXED", StatusTime: 1700000000000, Pages: 3, Lemmas: 10,
		}},
	}})

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	st := body["statistics"].(map[string]any)
	total := st["total"].(map[string]any)
	assert.Equal(t, 3.0, total["pages"])
	assert.Equal(t, true, total["indexing"])

	detailed := st["detailed"].([]any)
	require.Len(t, detailed, 1)
	site := detailed[0].(map[string]any)
	assert.Equal(t, "INDEXED", site["status"])
	assert.Equal(t, 1700000000000.0, site["statusTime"])
}

func TestSearch(t *testing.T) {
	ts := newTestServer(fakeStats{})
	ts.searcher.resp = &search.Response{
		Count: 5,
		Data: []search.Result{{
			Site: "https://a.com", SiteName: "A", URI: "/news", Title: "Новости", Snippet: "<b>лес</b>", Relevance: 1,
		}},
	}

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=%D0%BB%D0%B5%D1%81&site=https://a.com&offset=2&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, search.Query{Text: "лес", Site: "https://a.com", Offset: 2, Limit: 1}, ts.searcher.got)

	assert.Equal(t, true, body["result"])
	assert.Equal(t, 5.0, body["count"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "/news", first["uri"])
	assert.Equal(t, "A", first["siteName"])
	assert.Equal(t, 1.0, first["relevance"])
}

func TestSearchErrors(t *testing.T) {
	ts := newTestServer(fakeStats{})

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=x&offset=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "offset must be an integer", body["error"])

	ts.searcher.err = apperr.Input("search query is empty")
	rec, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "search query is empty", body["error"])

	ts.searcher.err = errors.New("database is locked")
	rec, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["result"])
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newTestServer(fakeStats{})

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=x", nil))
	ts.do(t, httptest.NewRequest(http.MethodGet, "/api/search?query=y", nil))
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/search", "200")))

	rec, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitesearch_http_requests_total")
}
