package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for issuance and downloads.
type Metrics struct {
	Issued        prometheus.Counter
	IssueFailures *prometheus.CounterVec
	IssueTime     prometheus.Histogram
	Downloads     *prometheus.CounterVec
	Collected     prometheus.Counter
}

// New registers the certificate metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_certificates_issued_total",
			Help: "Certificates issued",
		}),
		IssueFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_certificate_issue_failures_total",
			Help: "Refused or failed issuance attempts, by error code",
		}, []string{"code"}),
		IssueTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "etatcivil_certificate_issue_duration_seconds",
			Help:    "Time spent issuing a certificate",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_certificate_downloads_total",
			Help: "Download confirmations, by outcome",
		}, []string{"outcome"}),
		Collected: f.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_certificate_amount_collected_total",
			Help: "Amount collected for released copies",
		}),
	}
}

func (m *Metrics) ObserveIssued(seconds float64) {
	m.Issued.Inc()
	m.IssueTime.Observe(seconds)
}

func (m *Metrics) IncIssueFailure(code string) { m.IssueFailures.WithLabelValues(code).Inc() }

func (m *Metrics) ObserveDownload(outcome string, amount int64) {
	m.Downloads.WithLabelValues(outcome).Inc()
	if amount > 0 {
		m.Collected.Add(float64(amount))
	}
}
