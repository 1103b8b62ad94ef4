package limiter

import (
	"sync"
	"time"
)

// window is the per-(endpoint, caller) record of request timestamps,
// ordered by insertion. This is the sliding-window-log strategy: exact
// timestamps are retained and only those inside the trailing window
// count toward the quota. Fixed-window counters would allow up to 2x
// quota bursts at window boundaries; the log is exact at the cost of
// O(quota) memory per active key, acceptable because the log length is
// capped at the quota count (requests beyond quota are rejected before
// being recorded).
//
// Each window carries its own mutex so that the prune-compare-record
// sequence in Limiter.Allow is atomic per key without a global lock.
type window struct {
	mu sync.Mutex

	// stamps holds admitted request times in non-decreasing order.
	stamps []time.Time

	// evicted marks a window that the idle sweep has removed from the
	// bucket map. A caller that locked a stale pointer must re-fetch.
	evicted bool
}

// pruneLocked removes every timestamp older than now-span from the
// front of the log. Timestamps are inserted in non-decreasing order, so
// expiry is a contiguous prefix trim, amortized O(expired entries).
// Caller must hold w.mu.
func (w *window) pruneLocked(now time.Time, span time.Duration) {
	cutoff := now.Add(-span)

	trim := 0
	for trim < len(w.stamps) && w.stamps[trim].Before(cutoff) {
		trim++
	}
	if trim == 0 {
		return
	}

	remaining := copy(w.stamps, w.stamps[trim:])
	// Zero the tail so expired times are not pinned by the backing array.
	for i := remaining; i < len(w.stamps); i++ {
		w.stamps[i] = time.Time{}
	}
	w.stamps = w.stamps[:remaining]
}

// sizeLocked returns the number of surviving timestamps.
// Caller must hold w.mu and should prune first.
func (w *window) sizeLocked() int {
	return len(w.stamps)
}

// recordLocked appends now to the log. Caller must hold w.mu and must
// have verified sizeLocked() is below quota, or the capped-length
// invariant breaks.
func (w *window) recordLocked(now time.Time) {
	w.stamps = append(w.stamps, now)
}

// oldestLocked returns the oldest surviving timestamp and whether one
// exists. Caller must hold w.mu.
func (w *window) oldestLocked() (time.Time, bool) {
	if len(w.stamps) == 0 {
		return time.Time{}, false
	}
	return w.stamps[0], true
}
