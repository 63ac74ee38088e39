package sim

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qdeck/circuit"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	s, err := New(DensitySymbolic, 2, 2, WithMetrics(m))
	require.NoError(t, err)
	require.NoError(t, s.Run(epr(t)))
	require.NoError(t, s.Apply(circuit.Measure(1), []int{0}, []int{0}))
	guarded, err := circuit.NewClassical(circuit.X(), 1)
	require.NoError(t, err)
	require.NoError(t, s.Apply(guarded, []int{1}, []int{0}))

	backend := DensitySymbolic.String()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leaves.WithLabelValues(backend, "gate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leaves.WithLabelValues(backend, "controlled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.measurements.WithLabelValues(backend)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.branches.WithLabelValues(backend)))
	// one of the two branches fails the condition
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues(backend)))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.leaf(StateVector, "gate")
		m.measured(StateVector)
		m.skip(StateVector)
		m.setBranches(StateVector, 3)
	})
}
