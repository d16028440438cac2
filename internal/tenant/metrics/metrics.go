package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SignupsTotal         prometheus.Counter
	TransitionsTotal     *prometheus.CounterVec
	ModuleActivations    *prometheus.CounterVec
	ResourcesCreated     *prometheus.CounterVec
	SweepRunsTotal       *prometheus.CounterVec
	SweepExpiredTotal    prometheus.Counter
	SweepDurationSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SignupsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vendo_tenant_signups_total",
			Help: "Total tenant signups",
		}),
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_tenant_transitions_total",
			Help: "Total subscription lifecycle transitions by target state",
		}, []string{"to"}),
		ModuleActivations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_tenant_module_activations_total",
			Help: "Total module activation changes by operation",
		}, []string{"operation"}),
		ResourcesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_tenant_resources_created_total",
			Help: "Total users and branches created",
		}, []string{"resource"}),
		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_tenant_sweep_runs_total",
			Help: "Total trial expiry sweep runs by status",
		}, []string{"status"}),
		SweepExpiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vendo_tenant_sweep_expired_total",
			Help: "Total trials expired by the sweep worker",
		}),
		SweepDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "vendo_tenant_sweep_duration_seconds",
			Help: "Duration of trial expiry sweep runs in seconds",
		}),
	}
}

func (m *Metrics) IncrementSignups() {
	m.SignupsTotal.Inc()
}

func (m *Metrics) IncrementTransitions(to string) {
	m.TransitionsTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) IncrementModuleActivations(operation string) {
	m.ModuleActivations.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementResourcesCreated(resource string) {
	m.ResourcesCreated.WithLabelValues(resource).Inc()
}

func (m *Metrics) IncrementSweepRuns(status string) {
	m.SweepRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementSweepExpired(count int) {
	m.SweepExpiredTotal.Add(float64(count))
}

func (m *Metrics) ObserveSweepDuration(d time.Duration) {
	m.SweepDurationSeconds.Observe(d.Seconds())
}
