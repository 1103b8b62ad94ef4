package limiter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for admission decisions.
type Metrics struct {
	// Admission checks by endpoint and result.
	checks *prometheus.CounterVec

	// Denials by endpoint.
	denials *prometheus.CounterVec

	// Windows removed by the idle sweep.
	evicted prometheus.Counter

	// Currently tracked (endpoint, key) windows.
	tracked prometheus.Gauge

	// Decision latency.
	checkDuration prometheus.Histogram
}

// NewMetrics creates admission metrics registered on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodgate_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"endpoint", "result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodgate_admission_denials_total",
				Help: "Total number of requests denied by quota",
			},
			[]string{"endpoint"},
		),

		evicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "floodgate_windows_evicted_total",
				Help: "Total number of idle windows removed by the sweep",
			},
		),

		tracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "floodgate_windows_tracked",
				Help: "Current number of tracked (endpoint, key) windows",
			},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "floodgate_admission_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}
}

// observeDecision records one admission check.
func (m *Metrics) observeDecision(endpoint string, allowed bool, elapsed time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
		m.denials.WithLabelValues(endpoint).Inc()
	}
	m.checks.WithLabelValues(endpoint, result).Inc()
	m.checkDuration.Observe(elapsed.Seconds())
}

// observeSweep records the outcome of one idle-eviction pass.
func (m *Metrics) observeSweep(removed, remaining int) {
	m.evicted.Add(float64(removed))
	m.tracked.Set(float64(remaining))
}
