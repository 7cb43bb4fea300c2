package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Created      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	AudienceTier *prometheus.CounterVec
}

// New registers the notification metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_notifications_created_total",
			Help: "Notifications persisted, by type",
		}, []string{"type"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_notification_failures_total",
			Help: "Notification deliveries that failed, by type",
		}, []string{"type"}),
		AudienceTier: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_notification_audience_tier_total",
			Help: "Audience resolutions, by role and the tier that was used",
		}, []string{"role", "tier"}),
	}
}

func (m *Metrics) IncCreated(typ string) { m.Created.WithLabelValues(typ).Inc() }
func (m *Metrics) IncFailure(typ string) { m.Failures.WithLabelValues(typ).Inc() }
func (m *Metrics) IncAudienceTier(role, tier string) {
	m.AudienceTier.WithLabelValues(role, tier).Inc()
}
