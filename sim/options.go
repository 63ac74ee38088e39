package sim

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
)

// Rewriter rewrites an operation before it is flattened, typically to
// decompose controls a backend should not see.
type Rewriter interface {
	Rewrite(op circuit.Operation) (circuit.Operation, error)
}

type Option func(*Simulator)

// WithRand sets the source used for measurement sampling.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.env.rng = r }
}

// WithSeed seeds a PCG source for measurement sampling.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.env.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) { s.env.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Simulator) { s.env.metrics = m }
}

// WithPolicy sets how density backends treat measurement.
func WithPolicy(p Policy) Option {
	return func(s *Simulator) { s.env.policy = p }
}

// WithDecomposer rewrites every applied operation with r first.
func WithDecomposer(r Rewriter) Option {
	return func(s *Simulator) { s.rewriter = r }
}

// WithValues starts the simulator from a copy of an existing value table.
func WithValues(vals map[string]float64) Option {
	return func(s *Simulator) { s.env.values.Merge(vals) }
}

// WithTable starts the simulator with the values and custom gate matrices
// bound in t.
func WithTable(t *circuit.Table) Option {
	return func(s *Simulator) { s.env.values.MergeTable(t) }
}
