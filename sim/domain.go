package sim

import (
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

// env is the state every backend shares with its simulator.
type env struct {
	kind    Kind
	n       int
	nbits   int
	values  *circuit.Table
	rng     *rand.Rand
	policy  Policy
	logger  *zap.Logger
	metrics *Metrics
}

func (e *env) unsupported(op circuit.Operation, err error) error {
	return &UnsupportedOperationError{Op: op.Name(), Backend: e.kind, Err: err}
}

// domain binds an arithmetic type to the gate matrices it can produce.
type domain[T linalg.Scalar[T]] struct {
	gate func(*circuit.Gate, circuit.Values) (linalg.Matrix[T], error)
	// negligible decides which measurement branches are dropped
	negligible func(T) bool
}

var (
	numeric = domain[linalg.Complex]{
		gate:       (*circuit.Gate).Numeric,
		negligible: func(c linalg.Complex) bool { return c.Abs2() < 1e-28 },
	}
	exact = domain[linalg.Exact]{
		gate:       (*circuit.Gate).Exact,
		negligible: linalg.Exact.IsZero,
	}
)

// lifted is a unitary leaf ready for the kernels.
type lifted[T linalg.Scalar[T]] struct {
	targets []int
	ctrl    linalg.Control
	m       linalg.Matrix[T]
}

func (d domain[T]) lift(e *env, op circuit.Operation, qubits []int) (lifted[T], error) {
	var (
		g    *circuit.Gate
		ctrl linalg.Control
		tgt  = qubits
	)
	switch o := op.(type) {
	case *circuit.Gate:
		g = o
	case *circuit.Controlled:
		base, ok := o.Base().(*circuit.Gate)
		if !ok {
			return lifted[T]{}, e.unsupported(op, errors.New("controlled base is not a gate"))
		}
		g = base
		nc := o.Controls()
		ctrl = linalg.NewControl(e.n, qubits[:nc], o.Pattern())
		tgt = qubits[nc:]
	default:
		return lifted[T]{}, e.unsupported(op, errors.Errorf("unexpected leaf %s", op.Kind()))
	}
	m, err := d.gate(g, e.values)
	if err != nil {
		if errors.Is(err, circuit.ErrInexact) || errors.Is(err, circuit.ErrNumericOnly) {
			return lifted[T]{}, e.unsupported(op, err)
		}
		return lifted[T]{}, errors.Wrapf(err, "sim: %s", op.Name())
	}
	return lifted[T]{targets: tgt, ctrl: ctrl, m: m}, nil
}

// condition is the classical guard of a leaf.
type condition struct {
	bits []int
	want []bool
}

func (c condition) holds(stored []bool) bool {
	for i, b := range c.bits {
		if stored[b] != c.want[i] {
			return false
		}
	}
	return true
}

// split removes a classical wrapper from a leaf.
func split(leaf circuit.Leaf) (circuit.Operation, []int, condition) {
	cl, ok := leaf.Op.(*circuit.Classical)
	if !ok {
		return leaf.Op, leaf.Bits, condition{}
	}
	k := cl.Conditions()
	return cl.Base(), leaf.Bits[k:], condition{bits: leaf.Bits[:k], want: cl.Values()}
}

// outcomeBits writes outcome k of an m-wire measurement into stored: wire j
// of the measurement is bit m-1-j of k.
func outcomeBits(stored []bool, bits []int, k int) []bool {
	out := slices.Clone(stored)
	m := len(bits)
	for j, b := range bits {
		out[b] = (k>>(m-1-j))&1 == 1
	}
	return out
}

// matches reports whether basis index i of an n-qubit register agrees with
// outcome k on wires.
func matches(n int, wires []int, i, k int) bool {
	m := len(wires)
	for j, w := range wires {
		want := (k>>(m-1-j))&1 == 1
		if (i&linalg.WireBit(n, w) != 0) != want {
			return false
		}
	}
	return true
}

func leafKind(op circuit.Operation) string {
	if c, ok := op.(*circuit.Classical); ok {
		return "classical-" + c.Base().Kind().String()
	}
	return op.Kind().String()
}
