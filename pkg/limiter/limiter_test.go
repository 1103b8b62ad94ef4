package limiter

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestLimiter() *Limiter {
	return New(Config{Logger: discardLogger()})
}

// ============================================================================
// Admission Tests
// ============================================================================

func TestAllow_FillsQuotaThenDenies(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "5 per minute")

	now := time.Now()
	for i := 0; i < 5; i++ {
		if !l.Allow("/api", "u1", now) {
			t.Fatalf("call %d: expected allow within quota", i+1)
		}
	}

	if l.Allow("/api", "u1", now) {
		t.Error("expected denial once quota is filled")
	}

	// Denial is non-destructive: repeating it stays denied.
	if l.Allow("/api", "u1", now) {
		t.Error("expected repeated denial to stay denied")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "3 per second")

	base := time.Now()

	// Stagger three requests inside one second.
	if !l.Allow("/api", "u1", base) {
		t.Fatal("first request should be allowed")
	}
	if !l.Allow("/api", "u1", base.Add(200*time.Millisecond)) {
		t.Fatal("second request should be allowed")
	}
	if !l.Allow("/api", "u1", base.Add(400*time.Millisecond)) {
		t.Fatal("third request should be allowed")
	}
	if l.Allow("/api", "u1", base.Add(500*time.Millisecond)) {
		t.Fatal("fourth request inside the window should be denied")
	}

	// 1.1s after the first request, only the first has expired:
	// exactly one slot opens (sliding, not reset-to-full).
	later := base.Add(1100 * time.Millisecond)
	if !l.Allow("/api", "u1", later) {
		t.Error("expected one slot after oldest request expired")
	}
	if l.Allow("/api", "u1", later) {
		t.Error("expected only one slot to open, not a full reset")
	}
}

func TestAllow_UnknownEndpointUsesDefault(t *testing.T) {
	l := New(Config{DefaultLimit: "2 per minute", Logger: discardLogger()})

	now := time.Now()
	if !l.Allow("/never-registered", "u1", now) {
		t.Fatal("first request should be allowed")
	}
	if !l.Allow("/never-registered", "u1", now) {
		t.Fatal("second request should be allowed")
	}
	if l.Allow("/never-registered", "u1", now) {
		t.Error("third request should be denied under default 2 per minute")
	}
}

func TestAllow_ZeroCountDeniesEverything(t *testing.T) {
	l := newTestLimiter()
	l.SetQuota("/frozen", QuotaSpec{Count: 0, Window: time.Minute})

	if l.Allow("/frozen", "u1", time.Now()) {
		t.Error("count=0 endpoint should deny unconditionally")
	}
}

func TestAllow_KeysAndEndpointsIndependent(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/a", "1 per minute")
	l.SetLimit("/b", "1 per minute")

	now := time.Now()

	if !l.Allow("/a", "x", now) {
		t.Fatal("(/a, x) should be allowed")
	}
	if l.Allow("/a", "x", now) {
		t.Fatal("(/a, x) should now be exhausted")
	}

	// Same endpoint, different key.
	if !l.Allow("/a", "y", now) {
		t.Error("(/a, y) must not be affected by (/a, x)")
	}

	// Same key, different endpoint.
	if !l.Allow("/b", "x", now) {
		t.Error("(/b, x) must not be affected by (/a, x)")
	}
}

func TestAllow_LoginScenario(t *testing.T) {
	// Default 10 per minute, /login overridden to 3 per second.
	l := New(Config{DefaultLimit: "10 per minute", Logger: discardLogger()})
	l.SetLimit("/login", "3 per second")

	t0 := time.Now()
	for i := 0; i < 3; i++ {
		if !l.Allow("/login", "u1", t0) {
			t.Fatalf("call %d at t=0 should be allowed", i+1)
		}
	}
	if l.Allow("/login", "u1", t0) {
		t.Fatal("4th call at t=0 should be denied")
	}
	if !l.Allow("/login", "u1", t0.Add(1100*time.Millisecond)) {
		t.Error("call at t=1.1s should be allowed")
	}
}

func TestAllow_MalformedSetLimitDegradesToDefault(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "11 per fortnight")

	// Registration must not reject: the endpoint runs under 10/minute.
	now := time.Now()
	for i := 0; i < 10; i++ {
		if !l.Allow("/api", "u1", now) {
			t.Fatalf("call %d should be allowed under degraded default", i+1)
		}
	}
	if l.Allow("/api", "u1", now) {
		t.Error("11th call should be denied under degraded default")
	}
}

func TestSetQuota_ReplacementIsObserved(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "1 per minute")

	now := time.Now()
	if !l.Allow("/api", "u1", now) {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("/api", "u1", now) {
		t.Fatal("quota of 1 should be exhausted")
	}

	// Raising the quota takes effect for the existing window.
	l.SetLimit("/api", "5 per minute")
	if !l.Allow("/api", "u1", now) {
		t.Error("raised quota should admit again")
	}
}

// ============================================================================
// Remaining Tests
// ============================================================================

func TestRemaining_FreshKeyReportsFullQuota(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "5 per minute")

	now := time.Now()
	st := l.Remaining("/api", "nobody", now)

	if st.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", st.Remaining)
	}
	if st.Limit != 5 {
		t.Errorf("Limit = %d, want 5", st.Limit)
	}
	if st.Reset != now.Add(time.Minute).Unix() {
		t.Errorf("Reset = %d, want now+window (%d)", st.Reset, now.Add(time.Minute).Unix())
	}
}

func TestRemaining_CountsDownAndReportsReset(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "5 per minute")

	base := time.Now()
	for i := 0; i < 3; i++ {
		l.Allow("/api", "u1", base.Add(time.Duration(i)*time.Second))
	}

	now := base.Add(3 * time.Second)
	st := l.Remaining("/api", "u1", now)
	if st.Remaining != 2 {
		t.Errorf("Remaining after 3 of 5 = %d, want 2", st.Remaining)
	}

	// Exhaust the quota: remaining 0, reset is oldest + window.
	l.Allow("/api", "u1", now)
	l.Allow("/api", "u1", now)
	st = l.Remaining("/api", "u1", now)
	if st.Remaining != 0 {
		t.Errorf("Remaining after 5 of 5 = %d, want 0", st.Remaining)
	}
	if want := base.Add(time.Minute).Unix(); st.Reset != want {
		t.Errorf("Reset = %d, want oldest+window (%d)", st.Reset, want)
	}
}

func TestRemaining_DoesNotRecord(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "1 per minute")

	now := time.Now()
	for i := 0; i < 10; i++ {
		l.Remaining("/api", "u1", now)
	}

	if !l.Allow("/api", "u1", now) {
		t.Error("Remaining must not consume quota")
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestAllow_ConcurrentAdmitsExactlyQuota(t *testing.T) {
	const (
		quota   = 7
		callers = 64
	)

	l := newTestLimiter()
	l.SetQuota("/api", QuotaSpec{Count: quota, Window: time.Minute})

	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Allow("/api", "shared", now) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}

	close(start)
	wg.Wait()

	if allowed != quota {
		t.Errorf("admitted %d of %d concurrent calls, want exactly %d", allowed, callers, quota)
	}
}

func TestAllow_ConcurrentDistinctKeys(t *testing.T) {
	l := newTestLimiter()
	l.SetQuota("/api", QuotaSpec{Count: 1, Window: time.Minute})

	now := time.Now()
	var wg sync.WaitGroup
	results := make([]bool, 50)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Allow("/api", fmt.Sprintf("key-%d", i), now)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("key-%d: first request must be admitted", i)
		}
	}
}

// ============================================================================
// Eviction Tests
// ============================================================================

func TestSweep_RemovesIdleWindows(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "5 per second")

	base := time.Now()
	l.Allow("/api", "u1", base)
	l.Allow("/api", "u2", base)

	if got := l.TrackedKeys(); got != 2 {
		t.Fatalf("TrackedKeys = %d, want 2", got)
	}

	// Nothing is idle yet.
	if removed := l.Sweep(base.Add(500 * time.Millisecond)); removed != 0 {
		t.Errorf("Sweep removed %d live windows", removed)
	}

	// Both keys idle past the window.
	if removed := l.Sweep(base.Add(2 * time.Second)); removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if got := l.TrackedKeys(); got != 0 {
		t.Errorf("TrackedKeys after sweep = %d, want 0", got)
	}
}

func TestSweep_EvictedKeyStartsFresh(t *testing.T) {
	l := newTestLimiter()
	l.SetLimit("/api", "1 per second")

	base := time.Now()
	if !l.Allow("/api", "u1", base) {
		t.Fatal("first request should be allowed")
	}

	l.Sweep(base.Add(2 * time.Second))

	// Post-eviction the key behaves like never seen.
	if !l.Allow("/api", "u1", base.Add(2*time.Second)) {
		t.Error("evicted key should be admitted as a fresh window")
	}
}

func TestClose_StopsBackgroundSweep(t *testing.T) {
	l := New(Config{
		SweepInterval: 10 * time.Millisecond,
		Logger:        discardLogger(),
	})

	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	// Close is idempotent.
	if err := l.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	// Limiter stays usable after Close.
	if !l.Allow("/api", "u1", time.Now()) {
		t.Error("limiter should keep deciding after Close")
	}
}

// ============================================================================
// Metrics Tests
// ============================================================================

func TestMetrics_DecisionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := New(Config{
		Metrics: NewMetrics(reg),
		Logger:  discardLogger(),
	})
	l.SetLimit("/api", "1 per minute")

	now := time.Now()
	l.Allow("/api", "u1", now)
	l.Allow("/api", "u1", now)
	l.Sweep(now.Add(2 * time.Minute))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"floodgate_admission_checks_total",
		"floodgate_admission_denials_total",
		"floodgate_windows_evicted_total",
		"floodgate_windows_tracked",
		"floodgate_admission_check_duration_seconds",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
