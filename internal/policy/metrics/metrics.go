package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions           *prometheus.CounterVec
	CanLatencySeconds   prometheus.Histogram
	MatrixBuilds        *prometheus.CounterVec
	MatrixBuildSeconds  prometheus.Histogram
	MatrixCacheRequests *prometheus.CounterVec
	OverrideWritesTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_policy_decisions_total",
			Help: "Total permission decisions by outcome and reason",
		}, []string{"outcome", "reason"}),
		CanLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "vendo_policy_can_duration_seconds",
			Help: "Latency of single permission checks in seconds",
		}),
		MatrixBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_policy_matrix_builds_total",
			Help: "Total permission matrix builds by status",
		}, []string{"status"}),
		MatrixBuildSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "vendo_policy_matrix_build_duration_seconds",
			Help: "Duration of permission matrix builds in seconds",
		}),
		MatrixCacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_policy_matrix_cache_requests_total",
			Help: "Matrix snapshot cache lookups by result",
		}, []string{"result"}),
		OverrideWritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_policy_override_writes_total",
			Help: "Override mutations by operation",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementDecision(outcome, reason string) {
	m.Decisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) ObserveCanLatency(d time.Duration) {
	m.CanLatencySeconds.Observe(d.Seconds())
}

func (m *Metrics) IncrementMatrixBuilds(status string) {
	m.MatrixBuilds.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveMatrixBuild(d time.Duration) {
	m.MatrixBuildSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncrementMatrixCache(result string) {
	m.MatrixCacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementOverrideWrites(operation string) {
	m.OverrideWritesTotal.WithLabelValues(operation).Inc()
}
