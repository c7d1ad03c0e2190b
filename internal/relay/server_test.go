package relay

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matsen/bibcheck/internal/metrics"
)

// fakeINIST records the forwarded body and replies with status and reply.
func fakeINIST(t *testing.T, status int, reply string, got *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = string(body)
		}
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not a JSON object: %v (%s)", err, rec.Body.String())
	}
	return m
}

func TestHealth(t *testing.T) {
	rec := do(t, New().Handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decode(t, rec)
	if m["status"] != "ok" || m["service"] != ServiceName {
		t.Errorf("body = %v", m)
	}
}

func TestValidate_ForwardsVerbatim(t *testing.T) {
	var forwarded string
	upstream := fakeINIST(t, http.StatusOK, `[{"status":"found","doi":"10.1/x"}]`, &forwarded)

	payload := `[{"reference":"Arendt H. The Human Condition. 1958."}]`
	rec := do(t, New(WithINISTURL(upstream.URL)).Handler(), http.MethodPost, "/v1/validate", payload,
		map[string]string{"Content-Type": "application/json"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if forwarded != payload {
		t.Errorf("forwarded %q, want %q", forwarded, payload)
	}
	if rec.Body.String() != `[{"status":"found","doi":"10.1/x"}]` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestValidate_UpstreamError(t *testing.T) {
	upstream := fakeINIST(t, http.StatusServiceUnavailable, "maintenance", nil)

	rec := do(t, New(WithINISTURL(upstream.URL)).Handler(), http.MethodPost, "/v1/validate", `[]`, nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	m := decode(t, rec)
	if m["error"] != "INIST error: 503" || m["details"] != "maintenance" {
		t.Errorf("body = %v", m)
	}
}

func TestValidate_TransportFailure(t *testing.T) {
	upstream := fakeINIST(t, http.StatusOK, "[]", nil)
	url := upstream.URL
	upstream.Close()

	rec := do(t, New(WithINISTURL(url)).Handler(), http.MethodPost, "/v1/validate", `[]`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if m := decode(t, rec); m["error"] == "" || m["error"] == nil {
		t.Errorf("body = %v", m)
	}
}

func TestValidate_InvalidUpstreamJSON(t *testing.T) {
	upstream := fakeINIST(t, http.StatusOK, "<html>", nil)

	rec := do(t, New(WithINISTURL(upstream.URL)).Handler(), http.MethodPost, "/v1/validate", `[]`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestValidate_Timeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	h := New(WithINISTURL(upstream.URL), WithTimeout(50*time.Millisecond)).Handler()
	rec := do(t, h, http.MethodPost, "/v1/validate", `[]`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestValidate_RejectsNonArray(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer upstream.Close()
	h := New(WithINISTURL(upstream.URL)).Handler()

	for _, body := range []string{``, `{"reference":"x"}`, `[{"reference":`, `"x"`} {
		rec := do(t, h, http.MethodPost, "/v1/validate", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if calls != 0 {
		t.Errorf("upstream called %d times", calls)
	}
}

func TestCORS(t *testing.T) {
	h := New(WithAllowedOrigins([]string{"http://localhost:3000"})).Handler()

	rec := do(t, h, http.MethodOptions, "/v1/validate", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods = %q", got)
	}

	rec = do(t, h, http.MethodGet, "/health", "", map[string]string{"Origin": "http://evil.example"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign origin status = %d, want 403", rec.Code)
	}
}

func TestMetricsAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()
	h := New(WithMetrics(m), WithLogger(zap.New(core))).Handler()

	do(t, h, http.MethodGet, "/health", "", nil)
	do(t, h, http.MethodGet, "/nowhere", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`bibcheck_relay_requests_total{route="/health",status="200"} 1`,
		`bibcheck_relay_requests_total{route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}

	entries := logs.FilterMessage("relay request").All()
	if len(entries) < 2 {
		t.Fatalf("got %d request logs, want at least 2", len(entries))
	}
	if entries[0].ContextMap()["route"] != "/health" {
		t.Errorf("first log = %v", entries[0].ContextMap())
	}
}

func TestNoMetricsRoute(t *testing.T) {
	if rec := do(t, New().Handler(), http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRun_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New().Run(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("relay never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
