package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/config"
	"github.com/matsen/bibcheck/internal/metrics"
	"github.com/matsen/bibcheck/internal/reference"
)

func TestBuildSteps_Defaults(t *testing.T) {
	steps, err := buildSteps(config.Default())
	if err != nil {
		t.Fatalf("buildSteps() error = %v", err)
	}
	if len(steps) != len(catalog.DefaultOrder) {
		t.Fatalf("got %d steps, want %d", len(steps), len(catalog.DefaultOrder))
	}
	for i, s := range steps {
		if s.Name != catalog.DefaultOrder[i] {
			t.Errorf("steps[%d].Name = %q, want %q", i, s.Name, catalog.DefaultOrder[i])
		}
		if s.Provider == nil || s.Provider.Name() != s.Name {
			t.Errorf("steps[%d] provider mismatch", i)
		}
	}
	if steps[0].Threshold != 70 || steps[0].MinConfidence != 70 {
		t.Errorf("bnf-sparql thresholds = %d/%d, want 70/70", steps[0].Threshold, steps[0].MinConfidence)
	}
	if steps[1].Threshold != 80 {
		t.Errorf("hal threshold = %d, want 80", steps[1].Threshold)
	}
}

func TestBuildSteps_SkipsDisabled(t *testing.T) {
	cfg := config.Default()
	for i := range cfg.Providers {
		if cfg.Providers[i].Name != catalog.NameCrossRef {
			cfg.Providers[i].Disabled = true
		}
	}

	steps, err := buildSteps(cfg)
	if err != nil {
		t.Fatalf("buildSteps() error = %v", err)
	}
	if len(steps) != 1 || steps[0].Name != catalog.NameCrossRef {
		t.Errorf("steps = %+v, want only crossref", steps)
	}

	cfg.Providers = nil
	if _, err := buildSteps(cfg); !errors.Is(err, config.ErrNoProviders) {
		t.Errorf("no providers: error = %v, want ErrNoProviders", err)
	}
}

func TestBuildSteps_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{{Name: "worldcat"}}
	if _, err := buildSteps(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewVerifier_UsesBaseURL(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasPrefix(r.URL.Path, "/works") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","message":{"items":[{"title":["The Human Condition"],"DOI":"10.1000/hc","author":[{"family":"Arendt","given":"Hannah"}],"published":{"date-parts":[[1958]]}}]}}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.RateLimit = 0
	cfg.Pause = 0
	cfg.Providers = []config.ProviderConfig{
		{Name: catalog.NameCrossRef, Threshold: 70, BaseURL: srv.URL, Timeout: 2 * time.Second},
	}

	old := metricsFile
	metricsFile = filepath.Join(t.TempDir(), "bibcheck.prom")
	defer func() { metricsFile = old }()

	m := cliMetrics()
	if m == nil {
		t.Fatal("cliMetrics() = nil with --metrics-file set")
	}
	v, err := newVerifier(cfg, nil, m)
	if err != nil {
		t.Fatalf("newVerifier() error = %v", err)
	}
	res := v.VerifyEntry(context.Background(), reference.Entry{Title: "The Human Condition"})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if res.Status != reference.StatusVerified || res.Verified.Source != catalog.SourceCrossRef {
		t.Errorf("result = %+v", res)
	}

	flushMetrics(m, zap.NewNop())
	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{
		`bibcheck_catalog_lookups_total{outcome="match",provider="crossref"} 1`,
		`bibcheck_verify_entries_total{status="verified"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file missing %s", want)
		}
	}
}

func TestCLIMetrics_Disabled(t *testing.T) {
	old := metricsFile
	metricsFile = ""
	defer func() { metricsFile = old }()

	if m := cliMetrics(); m != nil {
		t.Errorf("cliMetrics() = %v, want nil without --metrics-file", m)
	}
	flushMetrics(metrics.New(), zap.NewNop())
}

func TestCrossRefFor(t *testing.T) {
	cfg := config.Default()
	if c := crossRefFor(cfg); c == nil || c.Name() != catalog.NameCrossRef {
		t.Errorf("crossRefFor() = %v", c)
	}
}
