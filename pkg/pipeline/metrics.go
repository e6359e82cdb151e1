package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// Metrics collects run counters on a private registry so that they can be
// written as a node_exporter textfile after the run.
type Metrics struct {
	registry    *prometheus.Registry
	clauses     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	flags       *prometheus.CounterVec
	lawDuration prometheus.Histogram
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomikae_clauses_total",
			Help: "Candidate clauses processed, by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomikae_failures_total",
			Help: "Clause failures, by reason.",
		}, []string{"reason"}),
		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomikae_flags_total",
			Help: "Warning flags raised on parsed clauses.",
		}, []string{"flag"}),
		lawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yomikae_law_duration_seconds",
			Help:    "Time spent on one law.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.clauses, m.failures, m.flags, m.lawDuration)
	return m
}

// ObserveOutcome counts one clause outcome.
func (m *Metrics) ObserveOutcome(o yomikae.Outcome) {
	if o.OK() {
		m.clauses.WithLabelValues("parsed").Inc()
		for _, f := range o.Result.Flags {
			m.flags.WithLabelValues(string(f)).Inc()
		}
		return
	}
	m.clauses.WithLabelValues("failed").Inc()
	m.failures.WithLabelValues(string(o.Failure.Reason)).Inc()
}

// ObserveLaw records the processing time of one law.
func (m *Metrics) ObserveLaw(d time.Duration) {
	m.lawDuration.Observe(d.Seconds())
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteFile writes the metrics in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
