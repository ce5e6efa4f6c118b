// Package observability exports workflow metrics to Prometheus.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

const namespace = "deequery"

// PrometheusRecorder implements output.MetricsRecorder with Prometheus
// collectors registered on a caller-supplied registry
type PrometheusRecorder struct {
	sessions      *prometheus.CounterVec
	attempts      prometheus.Histogram
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

var _ output.MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the collectors and registers them
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by terminal status (cancelled sessions use status cancelled).",
		}, []string{"status"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_attempts",
			Help:      "Generation attempts consumed per finished session.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Classified attempt failures by stage and code.",
		}, []string{"stage", "code"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of one workflow stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{r.sessions, r.attempts, r.failures, r.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// ObserveStage records how long one stage took
func (r *PrometheusRecorder) ObserveStage(stage session.Stage, d time.Duration) {
	r.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// RecordFailure counts one classified failure
func (r *PrometheusRecorder) RecordFailure(f session.Failure) {
	r.failures.WithLabelValues(string(f.Stage), f.Code.String()).Inc()
}

// RecordSession counts one finished session
func (r *PrometheusRecorder) RecordSession(status session.Status, attempts int, cancelled bool) {
	label := string(status)
	if cancelled {
		label = "cancelled"
	}
	r.sessions.WithLabelValues(label).Inc()
	if !cancelled {
		r.attempts.Observe(float64(attempts))
	}
}
