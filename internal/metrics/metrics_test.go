package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLookup(t *testing.T) {
	m := New()
	m.ObserveLookup("crossref", OutcomeMatch, 120*time.Millisecond)
	m.ObserveLookup("crossref", OutcomeMatch, 80*time.Millisecond)
	m.ObserveLookup("hal", OutcomeError, time.Second)
	m.ObserveLookup("hal", OutcomeSkipped, 0)

	if got := testutil.ToFloat64(m.lookups.WithLabelValues("crossref", OutcomeMatch)); got != 2 {
		t.Errorf("crossref/match = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.lookups.WithLabelValues("hal", OutcomeError)); got != 1 {
		t.Errorf("hal/error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.lookupDuration); got != 2 {
		t.Errorf("duration series = %d, want 2 (skipped lookups not timed)", got)
	}
}

func TestObserveEntryAndRelay(t *testing.T) {
	m := New()
	m.ObserveEntry("verified")
	m.ObserveEntry("not_found")
	m.ObserveEntry("verified")
	m.ObserveRelay("/v1/validate", 502, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.entries.WithLabelValues("verified")); got != 2 {
		t.Errorf("verified = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.relayRequests.WithLabelValues("/v1/validate", "502")); got != 1 {
		t.Errorf("relay 502 = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveEntry("uncertain")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `bibcheck_verify_entries_total{status="uncertain"} 1`) {
		t.Errorf("exposition missing entry counter:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLookup("crossref", OutcomeMatch, time.Second)
	m.ObserveEntry("verified")
	m.ObserveRelay("/health", 200, time.Millisecond)
	if m.Registry() != nil {
		t.Error("nil Metrics returned a registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveLookup("crossref", OutcomeMatch, 50*time.Millisecond)
	m.ObserveEntry("verified")

	path := filepath.Join(t.TempDir(), "bibcheck.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`bibcheck_catalog_lookups_total{outcome="match",provider="crossref"} 1`,
		`bibcheck_verify_entries_total{status="verified"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %s", want)
		}
	}

	var nilMetrics *Metrics
	if err := nilMetrics.WriteTextfile(path); err != nil {
		t.Errorf("nil WriteTextfile() error = %v", err)
	}
}
