package sim

import (
	"math"

	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

var pauliX = func() linalg.Matrix[linalg.Complex] {
	m, err := circuit.X().Numeric(nil)
	if err != nil {
		panic(err)
	}
	return m
}()

// stateVector holds a pure numeric state and collapses it on measurement.
type stateVector struct {
	env  *env
	psi  []linalg.Complex
	bits []bool
}

func newStateVector(e *env) *stateVector {
	b := &stateVector{env: e}
	b.reinit()
	return b
}

func (b *stateVector) reinit() {
	b.psi = make([]linalg.Complex, 1<<b.env.n)
	b.psi[0] = 1
	b.bits = make([]bool, b.env.nbits)
}

func (b *stateVector) apply(op circuit.Operation, qubits, bits []int, cond condition) error {
	if !cond.holds(b.bits) {
		b.env.metrics.skip(b.env.kind)
		b.env.logger.Debug("classical condition not met", zap.String("op", op.Name()))
		return nil
	}
	switch op.Kind() {
	case circuit.KindMeasure:
		k, err := b.collapse(qubits)
		if err != nil {
			return err
		}
		b.bits = outcomeBits(b.bits, bits, k)
		b.env.metrics.measured(b.env.kind)
		b.env.logger.Debug("measured",
			zap.Ints("qubits", qubits),
			zap.Ints("bits", bits),
			zap.Int("outcome", k))
		return nil
	case circuit.KindReset:
		k, err := b.collapse(qubits)
		if err != nil {
			return err
		}
		m := len(qubits)
		for j, w := range qubits {
			if (k>>(m-1-j))&1 == 1 {
				linalg.Apply(b.psi, b.env.n, 0, 1, []int{w}, linalg.Control{}, pauliX)
			}
		}
		return nil
	}

	l, err := numeric.lift(b.env, op, qubits)
	if err != nil {
		return err
	}
	linalg.Apply(b.psi, b.env.n, 0, 1, l.targets, l.ctrl, l.m)
	return nil
}

// collapse samples the wires, projects onto the outcome and renormalises.
func (b *stateVector) collapse(wires []int) (int, error) {
	marg, err := linalg.PartialDiagonal(b.probabilities(), b.env.n, wires)
	if err != nil {
		return 0, err
	}
	k, err := sample(b.env.rng, marg)
	if err != nil {
		return 0, err
	}
	scale := linalg.Complex(complex(1/math.Sqrt(marg[k]), 0))
	for i := range b.psi {
		if matches(b.env.n, wires, i, k) {
			b.psi[i] *= scale
		} else {
			b.psi[i] = 0
		}
	}
	return k, nil
}

func (b *stateVector) probabilities() []float64 {
	probs := make([]float64, len(b.psi))
	for i, a := range b.psi {
		probs[i] = a.Abs2()
	}
	return probs
}

// density returns |psi><psi|.
func (b *stateVector) density() linalg.Matrix[linalg.Complex] {
	dim := len(b.psi)
	rho := linalg.NewMatrix[linalg.Complex](dim, dim)
	for i, a := range b.psi {
		if a == 0 {
			continue
		}
		for j, c := range b.psi {
			rho.Set(i, j, a*c.Conj())
		}
	}
	return rho
}

func (b *stateVector) classical() ([]bool, error) {
	return append([]bool(nil), b.bits...), nil
}
