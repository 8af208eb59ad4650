package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source labels.
const (
	SourceRegistry  = "registry"
	SourceWebSearch = "web_search"
)

// Metrics provides observability for the screening pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Per-source call latency
	SourceLatency *prometheus.HistogramVec

	// Per-source outcomes: success, failure, timeout
	SourceOutcome *prometheus.CounterVec

	// Findings by processing status and found flag
	Findings *prometheus.CounterVec

	// Cache lookups by result: hit, miss, error
	CacheLookups *prometheus.CounterVec

	// Parallel strategy failures that fell back to sequential
	StrategyFallbacks prometheus.Counter

	// Full per-entity check latency
	CheckLatency prometheus.Histogram
}

// New registers the screening metrics with reg. Passing
// prometheus.DefaultRegisterer exposes them on /metrics; tests pass a fresh
// prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_source_duration_seconds",
			Help:    "Duration of registry and web search calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),

		SourceOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_source_outcomes_total",
			Help: "Registry and web search outcomes by result",
		}, []string{"source", "result"}),

		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_findings_total",
			Help: "Aggregated findings by processing status and found flag",
		}, []string{"status", "found"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_cache_lookups_total",
			Help: "Finding cache lookups by result",
		}, []string{"result"}),

		StrategyFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_strategy_fallbacks_total",
			Help: "Parallel dispatch failures that fell back to sequential processing",
		}),

		CheckLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_check_duration_seconds",
			Help:    "Duration of a full entity check including cache lookup",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

func (m *Metrics) ObserveSource(source string, d time.Duration, result string) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
		m.SourceOutcome.WithLabelValues(source, result).Inc()
	}
}

// IncrementSourceOutcome records an outcome without a latency sample, used
// when a call was abandoned at the timeout barrier.
func (m *Metrics) IncrementSourceOutcome(source, result string) {
	if m != nil {
		m.SourceOutcome.WithLabelValues(source, result).Inc()
	}
}

func (m *Metrics) IncrementFinding(status string, found bool) {
	if m != nil {
		label := "false"
		if found {
			label = "true"
		}
		m.Findings.WithLabelValues(status, label).Inc()
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementFallback() {
	if m != nil {
		m.StrategyFallbacks.Inc()
	}
}

func (m *Metrics) ObserveCheck(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}
