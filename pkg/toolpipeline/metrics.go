package toolpipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records tool-call audit data as Prometheus series, grounded in
// the teacher's use of client_golang for operational counters.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics constructs and registers the tool-pipeline collectors
// against reg (pass prometheus.DefaultRegisterer for the global one).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "toolpipeline",
			Name:      "calls_total",
			Help:      "Total tool invocations by tool name and decision.",
		}, []string{"tool", "decision"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentcore",
			Subsystem: "toolpipeline",
			Name:      "call_duration_seconds",
			Help:      "Tool invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

// Observe records one audit entry's outcome.
func (m *Metrics) Observe(rec AuditRecord) {
	m.calls.WithLabelValues(rec.ToolName, rec.Decision).Inc()
	m.duration.WithLabelValues(rec.ToolName).Observe(float64(rec.DurationMs) / 1000)
}
