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

func TestObserveArchive(t *testing.T) {
	m := New()
	m.ObserveArchive(OutcomeOK, 1024, 200*time.Millisecond)
	m.ObserveArchive("ContentFetchFailed", 0, time.Millisecond)
	m.ObserveArchive("ContentUploadFailed", 10, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.archives.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.archives.WithLabelValues("ContentFetchFailed")))
	assert.Equal(t, 1034.0, testutil.ToFloat64(m.bytesRelayed))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveArchive(OutcomeOK, 1, time.Second)
	m.LedgerFailed()
}

func TestLedgerFailed(t *testing.T) {
	m := New()
	m.LedgerFailed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerFailures))
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/archives/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/archives/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("418", "GET", "/archives/{id}")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveArchive(OutcomeOK, 1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "content_archiver_archives_total"))
}
