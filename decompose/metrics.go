package decompose

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts decompositions by construction and cache hits. A nil
// *Metrics records nothing.
type Metrics struct {
	decompositions *prometheus.CounterVec
	cacheHits      prometheus.Counter
}

// NewMetrics registers the decomposer collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decompositions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdeck",
			Subsystem: "decompose",
			Name:      "rewrites_total",
			Help:      "Controlled operations rewritten, by construction",
		}, []string{"construction"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qdeck",
			Subsystem: "decompose",
			Name:      "cache_hits_total",
			Help:      "Decompositions served from the cache",
		}),
	}
}

func (m *Metrics) record(construction string) {
	if m == nil {
		return
	}
	m.decompositions.WithLabelValues(construction).Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
