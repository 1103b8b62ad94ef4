// Package limiter provides per-endpoint, per-caller request admission
// over a trailing time window.
//
// # Overview
//
// The limiter answers one question on every inbound request: may this
// caller hit this endpoint right now? Quotas are expressed as
// human-readable limit strings ("10 per minute", "3 per second") bound
// to endpoint names, with one process-wide default for everything else.
//
// # Algorithm
//
// Admission uses a sliding-window log: each (endpoint, caller) pair
// owns an ordered record of admitted request timestamps, and only
// timestamps inside the trailing window count toward the quota. The
// log is exact, unlike fixed-window counters which admit up to twice
// the quota across a window boundary. Memory per active pair is capped
// at the quota count because denied requests are never recorded.
//
// # Usage
//
//	l := limiter.New(limiter.Config{
//	    DefaultLimit:  "10 per minute",
//	    SweepInterval: time.Minute,
//	})
//	defer l.Close()
//
//	l.SetLimit("/login", "3 per second")
//
//	if !l.Allow("/login", callerKey, time.Now()) {
//	    st := l.Remaining("/login", callerKey, time.Now())
//	    // respond 429 with st.Limit / st.Remaining / st.Reset
//	}
//
// # Thread Safety
//
// All operations are safe for concurrent use. Each window carries its
// own mutex, so the prune-compare-record sequence is serialized per
// key while unrelated keys never contend. Remaining may race with
// Allow on the same key; treat its snapshot as best-effort guidance.
//
// # Resource Bounds
//
// Windows are created lazily and removed by a background sweep once
// idle for a full window, keeping the key map bounded under churning
// caller populations (e.g. distinct client addresses).
package limiter
