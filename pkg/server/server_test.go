package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nexus-hq/floodgate/pkg/config"
	"nexus-hq/floodgate/pkg/limiter"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, configure func(*limiter.Limiter)) http.Handler {
	t.Helper()

	lim := limiter.New(limiter.Config{Logger: discardLogger()})
	t.Cleanup(func() { _ = lim.Close() })
	if configure != nil {
		configure(lim)
	}

	cfg := config.DefaultConfig()
	cfg.Telemetry.Metrics.Enabled = false

	srv := NewServer(cfg, lim, Options{Logger: discardLogger()})
	return srv.Handler()
}

func postCheck(t *testing.T, handler http.Handler, endpoint, key string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"endpoint": "` + endpoint + `", "key": "` + key + `"}`)
	req := httptest.NewRequest("POST", "/v1/check", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ============================================================
// /v1/check
// ============================================================

func TestCheck_AllowsWithinQuota(t *testing.T) {
	handler := newTestServer(t, func(lim *limiter.Limiter) {
		lim.SetLimit("/login", "3 per second")
	})

	rec := postCheck(t, handler, "/login", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp checkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Allowed {
		t.Error("first request should be allowed")
	}
	if resp.Limit != 3 || resp.Remaining != 2 {
		t.Errorf("limit/remaining = %d/%d, want 3/2", resp.Limit, resp.Remaining)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "2" {
		t.Errorf("remaining header = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestCheck_DeniesWith429(t *testing.T) {
	handler := newTestServer(t, func(lim *limiter.Limiter) {
		lim.SetLimit("/login", "1 per minute")
	})

	if rec := postCheck(t, handler, "/login", "user-1"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}

	rec := postCheck(t, handler, "/login", "user-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}

	var resp checkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Allowed {
		t.Error("denied decision reported as allowed")
	}
	if resp.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", resp.Remaining)
	}
}

func TestCheck_UnregisteredEndpointUsesDefault(t *testing.T) {
	handler := newTestServer(t, nil)

	rec := postCheck(t, handler, "/anything", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp checkResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Limit != limiter.DefaultQuotaCount {
		t.Errorf("limit = %d, want default %d", resp.Limit, limiter.DefaultQuotaCount)
	}
}

func TestCheck_RejectsBadRequests(t *testing.T) {
	handler := newTestServer(t, nil)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"wrong method", httptest.NewRequest("GET", "/v1/check", nil), http.StatusMethodNotAllowed},
		{"malformed body", httptest.NewRequest("POST", "/v1/check", strings.NewReader("{")), http.StatusBadRequest},
		{"missing fields", httptest.NewRequest("POST", "/v1/check", strings.NewReader(`{"endpoint": "/x"}`)), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// ============================================================
// /v1/remaining
// ============================================================

func TestRemaining_DoesNotConsumeQuota(t *testing.T) {
	handler := newTestServer(t, func(lim *limiter.Limiter) {
		lim.SetLimit("/api", "5 per minute")
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/v1/remaining?endpoint=/api&key=user-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var status limiter.Status
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if status.Remaining != 5 || status.Limit != 5 {
			t.Errorf("read %d: remaining/limit = %d/%d, want 5/5", i, status.Remaining, status.Limit)
		}
	}
}

func TestRemaining_ReflectsConsumption(t *testing.T) {
	handler := newTestServer(t, func(lim *limiter.Limiter) {
		lim.SetLimit("/api", "5 per minute")
	})

	postCheck(t, handler, "/api", "user-1")
	postCheck(t, handler, "/api", "user-1")

	req := httptest.NewRequest("GET", "/v1/remaining?endpoint=/api&key=user-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var status limiter.Status
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Remaining != 3 {
		t.Errorf("remaining = %d, want 3", status.Remaining)
	}
}

func TestRemaining_RequiresParameters(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/v1/remaining?endpoint=/api", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ============================================================
// /v1/limits, /healthz
// ============================================================

func TestLimits_ListsRegisteredQuotas(t *testing.T) {
	handler := newTestServer(t, func(lim *limiter.Limiter) {
		lim.SetLimit("/login", "3 per second")
		lim.SetLimit("/search", "20 per minute")
	})

	req := httptest.NewRequest("GET", "/v1/limits", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Default   limitEntry            `json:"default"`
		Endpoints map[string]limitEntry `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Default.Count != limiter.DefaultQuotaCount {
		t.Errorf("default count = %d", resp.Default.Count)
	}
	if got := resp.Endpoints["/login"]; got.Count != 3 || got.WindowSeconds != 1 {
		t.Errorf("/login = %+v", got)
	}
	if got := resp.Endpoints["/search"]; got.Count != 20 || got.WindowSeconds != 60 {
		t.Errorf("/search = %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

// ============================================================
// Middleware wiring
// ============================================================

func TestHandler_SetsRequestID(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
