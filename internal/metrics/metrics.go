package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	Transitions          *prometheus.CounterVec
	Conflicts            *prometheus.CounterVec
	ApplicationsCreated  prometheus.Counter
	VerificationOutcomes *prometheus.CounterVec
	ProviderFailures     prometheus.Counter
	EvaluationDuration   prometheus.Histogram
}

// New creates the metrics and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "handygo_status_transitions_total",
			Help: "Status transitions applied, by entity and target status",
		}, []string{"entity", "from", "to"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "handygo_conflicts_total",
			Help: "Rejected operations by conflict code",
		}, []string{"code"}),
		ApplicationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "handygo_job_applications_created_total",
			Help: "Job applications accepted",
		}),
		VerificationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "handygo_verification_outcomes_total",
			Help: "Definitive verification outcomes",
		}, []string{"outcome"}),
		ProviderFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "handygo_verification_provider_failures_total",
			Help: "Verification provider errors and timeouts",
		}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "handygo_verification_evaluation_seconds",
			Help:    "Wall time of verification provider calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveTransition(entity, from, to string) {
	m.Transitions.WithLabelValues(entity, from, to).Inc()
}

func (m *Metrics) ObserveConflict(code string) {
	m.Conflicts.WithLabelValues(code).Inc()
}
