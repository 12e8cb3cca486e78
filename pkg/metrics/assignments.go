package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics counts lifecycle transitions of device assignments.
type AssignmentMetrics struct {
	transitions *prometheus.CounterVec
}

// NewAssignmentMetrics registers the assignment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_transitions_total",
		Help:      "Assignment status transitions by source and target status.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions)
	return &AssignmentMetrics{transitions: transitions}
}

// ObserveTransition records a move between two statuses. Creation uses from="".
func (m *AssignmentMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from, "none"), normalizeLabel(to, "unknown")).Inc()
}

func normalizeLabel(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
