package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts simulator work. A nil *Metrics records nothing.
type Metrics struct {
	leaves       *prometheus.CounterVec
	measurements *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	branches     *prometheus.GaugeVec
}

// NewMetrics registers the simulator collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		leaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdeck",
			Subsystem: "sim",
			Name:      "leaves_applied_total",
			Help:      "Flattened leaves applied, by backend and leaf kind",
		}, []string{"backend", "kind"}),
		measurements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdeck",
			Subsystem: "sim",
			Name:      "measurements_total",
			Help:      "Measurement leaves evaluated, by backend",
		}, []string{"backend"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdeck",
			Subsystem: "sim",
			Name:      "classical_skips_total",
			Help:      "Classically controlled leaves skipped on a condition mismatch",
		}, []string{"backend"}),
		branches: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "qdeck",
			Subsystem: "sim",
			Name:      "density_branches",
			Help:      "Measurement branches held by a density backend",
		}, []string{"backend"}),
	}
}

func (m *Metrics) leaf(k Kind, kind string) {
	if m == nil {
		return
	}
	m.leaves.WithLabelValues(k.String(), kind).Inc()
}

func (m *Metrics) measured(k Kind) {
	if m == nil {
		return
	}
	m.measurements.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) skip(k Kind) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) setBranches(k Kind, n int) {
	if m == nil {
		return
	}
	m.branches.WithLabelValues(k.String()).Set(float64(n))
}
