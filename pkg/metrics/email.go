package metrics

import "github.com/prometheus/client_golang/prometheus"

// EmailMetrics counts outbound notification emails by template and outcome.
type EmailMetrics struct {
	sent *prometheus.CounterVec
}

func NewEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	if reg == nil {
		return &EmailMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Notification emails by template and outcome.",
	}, []string{"template", "outcome"})
	reg.MustRegister(sent)
	return &EmailMetrics{sent: sent}
}

func (m *EmailMetrics) IncSent(template string) { m.inc(template, "sent") }

func (m *EmailMetrics) IncFailed(template string) { m.inc(template, "failed") }

func (m *EmailMetrics) inc(template, outcome string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(template, "unknown"), outcome).Inc()
}
