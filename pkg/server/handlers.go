package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// checkRequest is the body of POST /v1/check.
type checkRequest struct {
	Endpoint string `json:"endpoint"`
	Key      string `json:"key"`
}

// checkResponse is the decision returned by POST /v1/check.
type checkResponse struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Reset     int64  `json:"reset"`
	Endpoint  string `json:"endpoint"`
}

// limitEntry describes one registered quota in GET /v1/limits.
type limitEntry struct {
	Count         int   `json:"count"`
	WindowSeconds int64 `json:"window_seconds"`
}

// handleCheck decides whether one request may proceed. The decision is
// recorded in the caller's window, so every call to this endpoint
// consumes quota when admitted.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Endpoint == "" || req.Key == "" {
		writeError(w, http.StatusBadRequest, "endpoint and key are required")
		return
	}

	now := time.Now()
	allowed := s.limiter.Allow(req.Endpoint, req.Key, now)
	status := s.limiter.Remaining(req.Endpoint, req.Key, now)

	if s.audit != nil {
		s.audit.Record(req.Endpoint, req.Key, allowed, status.Remaining, status.Limit, now)
	}

	setQuotaHeaders(w, status.Limit, status.Remaining, status.Reset)

	code := http.StatusOK
	if !allowed {
		code = http.StatusTooManyRequests
	}
	writeJSON(w, code, checkResponse{
		Allowed:   allowed,
		Remaining: status.Remaining,
		Limit:     status.Limit,
		Reset:     status.Reset,
		Endpoint:  req.Endpoint,
	})
}

// handleRemaining reports the caller's standing without consuming
// quota.
func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	endpoint := r.URL.Query().Get("endpoint")
	key := r.URL.Query().Get("key")
	if endpoint == "" || key == "" {
		writeError(w, http.StatusBadRequest, "endpoint and key query parameters are required")
		return
	}

	status := s.limiter.Remaining(endpoint, key, time.Now())
	setQuotaHeaders(w, status.Limit, status.Remaining, status.Reset)
	writeJSON(w, http.StatusOK, status)
}

// handleLimits lists the registered quotas and the fallback default.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	endpoints := make(map[string]limitEntry)
	for endpoint, spec := range s.limiter.Limits() {
		endpoints[endpoint] = limitEntry{
			Count:         spec.Count,
			WindowSeconds: int64(spec.Window.Seconds()),
		}
	}
	def := s.limiter.DefaultLimit()

	writeJSON(w, http.StatusOK, map[string]any{
		"default": limitEntry{
			Count:         def.Count,
			WindowSeconds: int64(def.Window.Seconds()),
		},
		"endpoints": endpoints,
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"tracked_keys": s.limiter.TrackedKeys(),
	})
}

func setQuotaHeaders(w http.ResponseWriter, limit, remaining int, reset int64) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": msg},
	})
}
