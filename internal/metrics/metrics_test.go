package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestStatusClass(t *testing.T) {
	testCases := []struct {
		name     string
		code     int
		expected string
	}{
		{"ok", 200, "2xx"},
		{"created", 201, "2xx"},
		{"not found", 404, "4xx"},
		{"server error", 503, "5xx"},
		{"transport failure", 0, "error"},
		{"negative", -1, "error"},
		{"out of range", 999, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusClass(tc.code); got != tc.expected {
				t.Errorf("StatusClass(%d) = %q; want %q", tc.code, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if cdeFetchRequestsTotal == nil || cdeFetchFailuresTotal == nil ||
		rowsLoadedTotal == nil || grabRunsTotal == nil || grabRunDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	before := testutil.ToFloat64(rowsLoadedTotal.WithLabelValues("state_crimes"))
	ObserveRowsLoaded("state_crimes", 25)
	after := testutil.ToFloat64(rowsLoadedTotal.WithLabelValues("state_crimes"))
	if after-before != 25 {
		t.Errorf("expected rows_loaded_total to grow by 25, got %f", after-before)
	}
}

func TestObserveSelfInitializes(t *testing.T) {
	// Observe helpers must work without an explicit Init so library callers
	// never hit nil collectors.
	ObserveFetch("agency_directory", 200)
	ObserveFetch("agency_arrests", 404)
	ObserveFetch("state_arrests", 0)
	ObserveRowsLoaded("agency_crimes", 0)
	ObserveRun("success", 3*time.Second)

	failures := testutil.ToFloat64(cdeFetchFailuresTotal.WithLabelValues("agency_directory"))
	if failures != 0 {
		t.Errorf("2xx fetch must not count as failure, got %f", failures)
	}
}

func TestServerRoutes(t *testing.T) {
	Init()
	ObserveFetch("agency_directory", 200)

	srv := NewServer(":0", zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read healthz body: %v", err)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("unexpected healthz body: %s", body)
	}

	mResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer mResp.Body.Close()
	if mResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", mResp.StatusCode)
	}
	mBody, err := io.ReadAll(mResp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(mBody), "cde_fetch_requests_total") {
		t.Fatalf("metrics body missing fetch counter:\n%s", mBody)
	}
}
