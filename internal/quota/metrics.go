package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Reservations *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Reservations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vendo_quota_reservations_total",
			Help: "Total quota reservation attempts by resource kind and outcome",
		}, []string{"resource", "outcome"}),
	}
}

func (m *Metrics) IncrementReservations(resource, outcome string) {
	m.Reservations.WithLabelValues(resource, outcome).Inc()
}
