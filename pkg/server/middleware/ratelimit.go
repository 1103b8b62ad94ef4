package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"nexus-hq/floodgate/pkg/limiter"
)

// AuditSink receives admission decisions for asynchronous recording.
// It is satisfied by audit.Recorder; a nil sink disables recording.
type AuditSink interface {
	Record(endpoint, callerKey string, allowed bool, remaining, limit int, at time.Time)
}

// RateLimit enforces per-endpoint admission before forwarding requests.
//
// The caller key is resolved from the request, the decision is made by
// the limiter, and X-RateLimit-* headers describe the caller's standing
// either way. Denied requests get a 429 with a JSON body. Each decision
// is handed to the audit sink if one is configured.
func RateLimit(lim *limiter.Limiter, sink AuditSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := r.URL.Path
			callerKey := CallerKey(r)
			now := time.Now()

			allowed := lim.Allow(endpoint, callerKey, now)
			status := lim.Remaining(endpoint, callerKey, now)

			setRateLimitHeaders(w, status)

			if sink != nil {
				sink.Record(endpoint, callerKey, allowed, status.Remaining, status.Limit, now)
			}

			if !allowed {
				retryAfter := status.Reset - now.Unix()
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error": {"message": "rate limit exceeded for %s", "type": "rate_limit_exceeded"}}`, endpoint)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKeyKey, callerKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerKey resolves the identity a request is limited under.
// Priority: API key > user ID > client IP.
func CallerKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetCallerKey extracts the resolved caller key from the context.
// Returns empty string if not found.
func GetCallerKey(ctx context.Context) string {
	if key, ok := ctx.Value(CallerKeyKey).(string); ok {
		return key
	}
	return ""
}

// setRateLimitHeaders sets the standard admission headers.
func setRateLimitHeaders(w http.ResponseWriter, status limiter.Status) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", status.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", status.Remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", status.Reset))
}
