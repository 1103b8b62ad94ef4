package limiter

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// QuotaSpec defines an admission limit: at most Count requests within a
// trailing Window. A QuotaSpec is immutable once constructed; replacing
// an endpoint's quota swaps the whole value.
//
// Count = 0 is a valid spec meaning every request is denied.
type QuotaSpec struct {
	// Count is the maximum number of requests admitted per window.
	Count int

	// Window is the trailing duration over which requests are counted.
	Window time.Duration
}

// Default quota applied when no endpoint-specific quota is registered
// and when a limit string cannot be parsed.
const (
	DefaultQuotaCount  = 10
	DefaultQuotaWindow = time.Minute
)

// DefaultQuota returns the process-wide fallback quota of 10 requests
// per minute.
func DefaultQuota() QuotaSpec {
	return QuotaSpec{Count: DefaultQuotaCount, Window: DefaultQuotaWindow}
}

// quotaSeparator is the exact token separating count from unit in a
// limit string.
const quotaSeparator = " per "

// unitWindows maps the accepted limit string units to window durations.
var unitWindows = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseQuota parses a human-readable limit string of the exact shape
// "<positive integer> per <unit>" where unit is one of "second",
// "minute", "hour", or "day".
//
// Parsing never fails the caller: any deviation (wrong separator,
// non-integer or non-positive count, unknown unit) degrades to
// DefaultQuota and is logged as a warning. A malformed configuration
// value must not take down request admission.
func ParseQuota(text string, logger *slog.Logger) QuotaSpec {
	if logger == nil {
		logger = slog.Default()
	}

	parts := strings.Split(text, quotaSeparator)
	if len(parts) != 2 {
		logger.Warn("invalid limit format, using default",
			"limit", text,
			"default_count", DefaultQuotaCount,
			"default_window", DefaultQuotaWindow.String(),
		)
		return DefaultQuota()
	}

	count, err := strconv.Atoi(parts[0])
	if err != nil || count <= 0 {
		logger.Warn("invalid limit count, using default",
			"limit", text,
			"count", parts[0],
		)
		return DefaultQuota()
	}

	window, ok := unitWindows[parts[1]]
	if !ok {
		logger.Warn("invalid limit unit, using default",
			"limit", text,
			"unit", parts[1],
		)
		return DefaultQuota()
	}

	return QuotaSpec{Count: count, Window: window}
}
