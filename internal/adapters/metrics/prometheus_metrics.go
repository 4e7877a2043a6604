// Package metrics provides the Prometheus implementation of
// ports.MetricsReporter.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sufield/trustboot/internal/core/ports"
)

const namespace = "trustboot"

// PrometheusMetrics implements ports.MetricsReporter using Prometheus.
type PrometheusMetrics struct {
	stepDuration *prometheus.HistogramVec
	bootstraps   *prometheus.CounterVec
	pollAttempts *prometheus.CounterVec
	published    *prometheus.CounterVec
	issued       *prometheus.CounterVec
}

var _ ports.MetricsReporter = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the bootstrap metrics with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bootstrap_step_duration_seconds",
			Help:      "Duration of bootstrap steps, including time spent waiting for upstream artifacts",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"role", "step"}),

		bootstraps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_total",
			Help:      "Total number of bootstrap runs by outcome",
		}, []string{"role", "result"}), // result: success, failure

		pollAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Total number of exchange channel probes",
		}, []string{"artifact", "result"}), // result: ready, not_ready

		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_published_total",
			Help:      "Total number of artifacts written to the exchange channel",
		}, []string{"artifact"}),

		issued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_issued_total",
			Help:      "Total number of leaf certificate requests answered by outcome",
		}, []string{"result"}),
	}
}

// ObserveStep records how long a bootstrap step took.
func (m *PrometheusMetrics) ObserveStep(role, step string, d time.Duration) {
	m.stepDuration.WithLabelValues(role, step).Observe(d.Seconds())
}

// RecordBootstrap records the final outcome of a bootstrap run.
func (m *PrometheusMetrics) RecordBootstrap(role string, ok bool) {
	m.bootstraps.WithLabelValues(role, outcome(ok, "success", "failure")).Inc()
}

// RecordPollAttempt records one probe of an artifact.
func (m *PrometheusMetrics) RecordPollAttempt(artifact string, ready bool) {
	m.pollAttempts.WithLabelValues(artifact, outcome(ready, "ready", "not_ready")).Inc()
}

// RecordPublished records an artifact written to the channel.
func (m *PrometheusMetrics) RecordPublished(artifact string) {
	m.published.WithLabelValues(artifact).Inc()
}

// RecordIssued records the outcome of answering a request.
func (m *PrometheusMetrics) RecordIssued(ok bool) {
	m.issued.WithLabelValues(outcome(ok, "issued", "rejected")).Inc()
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for collection by node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
