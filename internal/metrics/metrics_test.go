package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_search(t *testing.T) {
	m := New()
	m.SearchCompleted("ok", true, 12, 30*time.Millisecond)
	m.SearchCompleted("degraded", false, 0, time.Millisecond)
	m.StrategyFailed("semantic_original")
	m.StrategyFailed("semantic_original")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchRequests.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fastPath))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.strategyFailures.WithLabelValues("semantic_original")))
}

func TestMetrics_FatwasIndexed(t *testing.T) {
	m := New()
	m.FatwasIndexed(5, 1)
	m.FatwasIndexed(0, 0)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.indexed.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexed.WithLabelValues("failed")))
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/fatwas/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fatwas/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/fatwas/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "iftaa_http_requests_total"))
}
