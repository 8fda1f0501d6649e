package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveComputation("open", 12*time.Millisecond)
	m.ObserveComputation("open", 3*time.Millisecond)
	m.ObserveFetch("settings", nil)
	m.ObserveFetch("ledger", errors.New("timeout"))
	m.ObserveCache("ledger", "hit")
	m.StaleDiscarded()
	m.Invalidated("date")
	m.LiveSessionOpened()
	m.ObserveHTTP(http.MethodGet, "/api/v1/public/slots", 200, time.Millisecond)

	if got := testutil.ToFloat64(m.computations.WithLabelValues("open")); got != 2 {
		t.Fatalf("expected 2 open computations, got %v", got)
	}
	if got := testutil.ToFloat64(m.sourceFetches.WithLabelValues("ledger", "error")); got != 1 {
		t.Fatalf("expected 1 ledger error, got %v", got)
	}
	if got := testutil.ToFloat64(m.liveSessions); got != 1 {
		t.Fatalf("expected 1 live session, got %v", got)
	}
}

func TestMetricsHandlerServesOwnRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.StaleDiscarded()

	rw := httptest.NewRecorder()
	m.Handler().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rw.Body.String(), "cabook_availability_stale_selections_discarded_total 1") {
		t.Fatalf("expected stale counter in output:\n%s", rw.Body.String())
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveComputation("error", time.Second)
	m.ObserveFetch("settings", nil)
	m.ObserveCache("settings", "miss")
	m.StaleDiscarded()
	m.Invalidated("settings")
	m.LiveSessionOpened()
	m.LiveSessionClosed()
	m.ObserveHTTP(http.MethodGet, "/", 200, time.Millisecond)
}
