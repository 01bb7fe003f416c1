package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_RoutePatternLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/outputs/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		req := httptest.NewRequest("GET", "/v1/outputs/"+name, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/outputs/{name}", "404"))
	if val < 2 {
		t.Errorf("expected both requests under the route pattern, got %f", val)
	}
}

func TestMetricsMiddleware_RecordsUploadSize(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/index", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	body := strings.Repeat("x", 4096)
	req := httptest.NewRequest("POST", "/v1/index", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if testutil.CollectAndCount(httpRequestSize) == 0 {
		t.Error("expected http_request_size_bytes to have observations")
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/index", "201")); v < 1 {
		t.Errorf("expected POST 201 to be counted, got %f", v)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/v1/clean", "/v1/clean"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		result := normalizePath(tc.input)
		if result != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestRegisterMetrics_Idempotent(t *testing.T) {
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
	RegisterMatchingMetrics()
	RegisterMatchingMetrics()

	MatchesTotal.WithLabelValues("unmatched").Inc()
	if v := testutil.ToFloat64(MatchesTotal.WithLabelValues("unmatched")); v < 1 {
		t.Errorf("expected matches_total to be incremented, got %f", v)
	}
}
