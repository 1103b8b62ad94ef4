package limiter

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter decides, per endpoint and per caller key, whether a request
// is admitted under the effective quota. It owns the endpoint quota
// registry and the per-key window map; both live for the lifetime of
// the Limiter instance and are safe for concurrent use.
//
// The caller key is opaque: a user ID, an API key, a remote address.
// The Limiter never interprets its contents, and decisions for
// different (endpoint, key) pairs are fully independent.
//
// Allow and Remaining never fail. Unknown endpoints fall back to the
// default quota and unknown keys start with a fresh window, so the
// surrounding system can treat every call as infallible.
type Limiter struct {
	def     QuotaSpec
	logger  *slog.Logger
	metrics *Metrics

	// regMu guards registry. Reads happen on every decision, writes
	// only through SetLimit/SetQuota; replacement is atomic per entry.
	regMu    sync.RWMutex
	registry map[string]QuotaSpec

	// bucketMu guards the buckets map itself. Individual windows carry
	// their own mutex, so unrelated keys never contend past the map
	// lookup.
	bucketMu sync.RWMutex
	buckets  map[bucketKey]*window

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// bucketKey scopes one window to an (endpoint, caller key) pair.
type bucketKey struct {
	endpoint string
	caller   string
}

// Status reports the remaining quota for one (endpoint, key) pair.
// It is used to populate X-RateLimit-* response headers.
type Status struct {
	// Remaining is the number of requests still admissible in the
	// current window. Never negative.
	Remaining int `json:"remaining"`

	// Limit is the effective quota count.
	Limit int `json:"limit"`

	// Reset is the epoch second at which the oldest recorded request
	// leaves the window. For an empty window it is now plus the window.
	Reset int64 `json:"reset"`
}

// Config configures a Limiter.
type Config struct {
	// DefaultLimit is the fallback limit string applied to endpoints
	// with no registered quota (e.g. "10 per minute"). Malformed input
	// degrades to 10 per minute.
	DefaultLimit string

	// SweepInterval is how often idle windows are evicted. Zero
	// disables the background sweep (callers may still invoke Sweep).
	SweepInterval time.Duration

	// Logger receives parse warnings and sweep activity.
	// Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics receives decision counters. Optional.
	Metrics *Metrics
}

// New creates a Limiter and, when configured, starts its idle-eviction
// sweep. Call Close to stop the sweep.
func New(cfg Config) *Limiter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "limiter")

	def := DefaultQuota()
	if cfg.DefaultLimit != "" {
		def = ParseQuota(cfg.DefaultLimit, logger)
	}

	l := &Limiter{
		def:           def,
		logger:        logger,
		metrics:       cfg.Metrics,
		registry:      make(map[string]QuotaSpec),
		buckets:       make(map[bucketKey]*window),
		sweepInterval: cfg.SweepInterval,
		done:          make(chan struct{}),
	}

	if l.sweepInterval > 0 {
		go l.sweepLoop()
	}

	return l
}

// SetLimit parses a limit string and replaces the quota registered for
// the endpoint. It always succeeds: malformed input degrades to the
// default quota (logged as a warning) rather than rejecting the call.
func (l *Limiter) SetLimit(endpoint, limit string) {
	spec := ParseQuota(limit, l.logger)
	l.SetQuota(endpoint, spec)
	l.logger.Info("limit registered",
		"endpoint", endpoint,
		"limit", limit,
		"count", spec.Count,
		"window", spec.Window.String(),
	)
}

// SetQuota replaces the quota registered for the endpoint with an
// already-constructed spec. A Count of 0 denies every request to the
// endpoint.
func (l *Limiter) SetQuota(endpoint string, spec QuotaSpec) {
	l.regMu.Lock()
	l.registry[endpoint] = spec
	l.regMu.Unlock()
}

// Quota returns the effective quota for an endpoint: its registered
// spec, or the default when none is registered.
func (l *Limiter) Quota(endpoint string) QuotaSpec {
	l.regMu.RLock()
	defer l.regMu.RUnlock()

	if spec, ok := l.registry[endpoint]; ok {
		return spec
	}
	return l.def
}

// Allow reports whether a request to endpoint by the given caller key
// at time now is admitted, and records it when it is. Denial is
// non-destructive: a denied request leaves the window unchanged, so
// repeated denied calls stay denied until the window slides.
//
// The prune-compare-record sequence runs under the window's own mutex,
// so concurrent calls for the same key can never jointly overshoot the
// quota, while unrelated keys proceed without contention.
func (l *Limiter) Allow(endpoint, key string, now time.Time) bool {
	start := time.Now()
	spec := l.Quota(endpoint)

	var allowed bool
	for {
		w := l.bucket(endpoint, key)
		w.mu.Lock()
		if w.evicted {
			// Lost a race with the idle sweep; the map no longer holds
			// this window. Re-fetch so the admission lands in live state.
			w.mu.Unlock()
			continue
		}

		w.pruneLocked(now, spec.Window)
		if w.sizeLocked() >= spec.Count {
			w.mu.Unlock()
			allowed = false
			break
		}
		w.recordLocked(now)
		w.mu.Unlock()
		allowed = true
		break
	}

	if !allowed {
		l.logger.Warn("rate limit exceeded",
			"endpoint", endpoint,
			"key", key,
		)
	}
	if l.metrics != nil {
		l.metrics.observeDecision(endpoint, allowed, time.Since(start))
	}
	return allowed
}

// Remaining reports the remaining quota, the limit, and the reset time
// for one (endpoint, key) pair without recording a request. It prunes
// the window as a side effect; pruning is idempotent and only shrinks
// state, so the read path stays safe to call concurrently with Allow.
//
// The result may be stale by the time the caller reads it when Allow
// races on the same key. That relaxation is deliberate: quota headers
// are best-effort guidance, not a transactional view.
func (l *Limiter) Remaining(endpoint, key string, now time.Time) Status {
	spec := l.Quota(endpoint)

	status := Status{
		Remaining: spec.Count,
		Limit:     spec.Count,
		Reset:     now.Add(spec.Window).Unix(),
	}

	w := l.peek(endpoint, key)
	if w == nil {
		// Never-seen key: fresh window, full quota.
		return status
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now, spec.Window)
	size := w.sizeLocked()
	status.Remaining = spec.Count - size
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if oldest, ok := w.oldestLocked(); ok {
		status.Reset = oldest.Add(spec.Window).Unix()
	}
	return status
}

// Limits returns a copy of the registered endpoint quotas. The default
// quota is not included; endpoints absent from the map fall back to it.
func (l *Limiter) Limits() map[string]QuotaSpec {
	l.regMu.RLock()
	defer l.regMu.RUnlock()

	out := make(map[string]QuotaSpec, len(l.registry))
	for endpoint, spec := range l.registry {
		out[endpoint] = spec
	}
	return out
}

// DefaultLimit returns the fallback quota applied to unregistered
// endpoints.
func (l *Limiter) DefaultLimit() QuotaSpec {
	return l.def
}

// Sweep removes windows whose newest admitted request is older than
// their effective window, as observed at time now. A fully expired
// window is indistinguishable from an absent one, so eviction cannot
// change any future decision. Returns the number of windows removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.bucketMu.Lock()
	defer l.bucketMu.Unlock()

	removed := 0
	for key, w := range l.buckets {
		spec := l.Quota(key.endpoint)

		w.mu.Lock()
		w.pruneLocked(now, spec.Window)
		if w.sizeLocked() == 0 {
			w.evicted = true
			delete(l.buckets, key)
			removed++
		}
		w.mu.Unlock()
	}

	if l.metrics != nil {
		l.metrics.observeSweep(removed, len(l.buckets))
	}
	return removed
}

// TrackedKeys returns the number of (endpoint, key) windows currently
// held. Useful for monitoring and tests.
func (l *Limiter) TrackedKeys() int {
	l.bucketMu.RLock()
	defer l.bucketMu.RUnlock()
	return len(l.buckets)
}

// Close stops the background sweep. It does not release windows; the
// Limiter remains usable for decisions after Close.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return nil
}

// bucket returns the window for the pair, creating it on first
// observation.
func (l *Limiter) bucket(endpoint, key string) *window {
	bk := bucketKey{endpoint: endpoint, caller: key}

	l.bucketMu.RLock()
	w, ok := l.buckets[bk]
	l.bucketMu.RUnlock()
	if ok {
		return w
	}

	l.bucketMu.Lock()
	defer l.bucketMu.Unlock()

	// Re-check: another goroutine may have created it between locks.
	if w, ok := l.buckets[bk]; ok {
		return w
	}
	w = &window{}
	l.buckets[bk] = w
	return w
}

// peek returns the window for the pair without creating one.
func (l *Limiter) peek(endpoint, key string) *window {
	l.bucketMu.RLock()
	defer l.bucketMu.RUnlock()
	return l.buckets[bucketKey{endpoint: endpoint, caller: key}]
}

// sweepLoop runs periodic idle eviction until Close.
func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := l.Sweep(time.Now()); removed > 0 {
				l.logger.Debug("idle windows evicted", "count", removed)
			}
		case <-l.done:
			return
		}
	}
}
