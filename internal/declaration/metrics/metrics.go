package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the declaration workflow.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	TransitionTime  *prometheus.HistogramVec
	Created         prometheus.Counter
	Duplicates      prometheus.Counter
	ShardLockWait   prometheus.Histogram
	ShardLockAcquis prometheus.Counter
}

// New registers the workflow metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_declaration_transitions_total",
			Help: "Workflow transition attempts, by action and outcome code",
		}, []string{"action", "outcome"}),
		TransitionTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etatcivil_declaration_transition_duration_seconds",
			Help:    "Time spent applying a workflow transition",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"action"}),
		Created: f.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_declarations_created_total",
			Help: "Declarations submitted",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_declaration_duplicates_total",
			Help: "Submissions refused by the duplicate guard",
		}),
		ShardLockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "etatcivil_declaration_shard_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a declaration shard lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ShardLockAcquis: f.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_declaration_shard_lock_acquisitions_total",
			Help: "Declaration shard lock acquisitions",
		}),
	}
}

func (m *Metrics) ObserveTransition(action, outcome string, seconds float64) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
	m.TransitionTime.WithLabelValues(action).Observe(seconds)
}

func (m *Metrics) IncCreated()   { m.Created.Inc() }
func (m *Metrics) IncDuplicate() { m.Duplicates.Inc() }

func (m *Metrics) ObserveLockWait(seconds float64) {
	m.ShardLockWait.Observe(seconds)
	m.ShardLockAcquis.Inc()
}
