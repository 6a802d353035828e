// Package observability exposes Prometheus instrumentation for verification
// runs and backend queries.
//
// The recorder is injected where needed and every method is nil-safe, so
// library callers that do not care about metrics pass nothing and pay
// nothing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "veridata"

// Recorder holds the collectors for one registry.
type Recorder struct {
	runs        *prometheus.CounterVec
	constraints *prometheus.CounterVec
	queries     *prometheus.CounterVec
	queryTime   prometheus.Histogram
}

// NewRecorder creates and registers the veridata collectors. Registration
// panics on duplicate registration, same as promauto; use one recorder per
// registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Verification runs by overall status.",
		}, []string{"status"}),
		constraints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constraint_outcomes_total",
			Help:      "Constraint outcomes by kind.",
		}, []string{"outcome"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_queries_total",
			Help:      "Backend aggregation queries by result.",
		}, []string{"result"}),
		queryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_query_seconds",
			Help:      "Backend aggregation query latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	reg.MustRegister(r.runs, r.constraints, r.queries, r.queryTime)

	return r
}

// ObserveRun records one completed verification run.
func (r *Recorder) ObserveRun(status string) {
	if r == nil {
		return
	}

	r.runs.WithLabelValues(status).Inc()
}

// ObserveConstraint records one constraint outcome.
func (r *Recorder) ObserveConstraint(outcome string) {
	if r == nil {
		return
	}

	r.constraints.WithLabelValues(outcome).Inc()
}

// ObserveQuery records one backend query execution.
func (r *Recorder) ObserveQuery(err error, elapsed time.Duration) {
	if r == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	r.queries.WithLabelValues(result).Inc()
	r.queryTime.Observe(elapsed.Seconds())
}
