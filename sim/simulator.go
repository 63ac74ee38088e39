// Package sim evaluates circuits against a unitary accumulator, a state
// vector or a density matrix. Every backend consumes the flattened leaves of
// an operation; a leaf either applies completely or leaves the state as it
// was.
package sim

import (
	"math/rand/v2"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

// MaxQubits bounds the register size of every backend.
const MaxQubits = 20

type backend interface {
	apply(op circuit.Operation, qubits, bits []int, cond condition) error
	reinit()
	classical() ([]bool, error)
}

// Simulator owns one backend state and its classical register. It is not
// safe for concurrent use.
type Simulator struct {
	env      *env
	rewriter Rewriter
	backend  backend
}

// New returns a simulator of the given kind over qubits quantum and bits
// classical wires.
func New(kind Kind, qubits, bits int, opts ...Option) (*Simulator, error) {
	if qubits < 1 || qubits > MaxQubits {
		return nil, errors.Errorf("sim: register of %d qubits outside 1..%d", qubits, MaxQubits)
	}
	if bits < 0 {
		return nil, errors.Errorf("sim: negative bit count %d", bits)
	}
	s := &Simulator{env: &env{
		kind:   kind,
		n:      qubits,
		nbits:  bits,
		values: circuit.NewTable(),
		logger: zap.NewNop(),
	}}
	for _, opt := range opts {
		opt(s)
	}
	if s.env.rng == nil {
		s.env.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.env.policy == PolicyDefault {
		s.env.policy = Collapse
		if kind.Symbolic() {
			s.env.policy = Enumerate
		}
	}

	switch kind {
	case UnitaryNumeric:
		s.backend = newUnitary(s.env, numeric)
	case UnitarySymbolic:
		s.backend = newUnitary(s.env, exact)
	case StateVector:
		if s.env.policy == Enumerate {
			return nil, errors.New("sim: the state vector backend only collapses")
		}
		s.backend = newStateVector(s.env)
	case DensityNumeric:
		s.backend = newDensity(s.env, numeric)
	case DensitySymbolic:
		s.backend = newDensity(s.env, exact)
	default:
		return nil, errors.Errorf("sim: unknown backend kind %d", kind)
	}
	s.env.logger.Debug("simulator created",
		zap.Stringer("kind", kind),
		zap.Int("qubits", qubits),
		zap.Int("bits", bits),
		zap.Stringer("policy", s.env.policy))
	return s, nil
}

func (s *Simulator) Kind() Kind     { return s.env.kind }
func (s *Simulator) Qubits() int    { return s.env.n }
func (s *Simulator) Bits() int      { return s.env.nbits }
func (s *Simulator) Policy() Policy { return s.env.policy }

// SetValue binds a named parameter.
func (s *Simulator) SetValue(name string, v float64) { s.env.values.Set(name, v) }

// SetMatrix binds the matrix of a custom gate. Only numeric backends can use
// it.
func (s *Simulator) SetMatrix(name string, m linalg.Matrix[linalg.Complex]) {
	s.env.values.SetMatrix(name, m)
}

// Value returns the bound value of a named parameter.
func (s *Simulator) Value(name string) (float64, bool) { return s.env.values.Value(name) }

// Prepare binds the default parameter values every algorithm inside op
// declares, overwriting earlier bindings of the same names.
func (s *Simulator) Prepare(op circuit.Operation) error {
	vals, err := circuit.DefaultValues(op)
	if err != nil {
		return errors.Wrap(err, "sim: collecting default values")
	}
	s.env.values.Merge(vals)
	return nil
}

// Reset returns the state and the classical register to their initial
// values. Parameter bindings are kept.
func (s *Simulator) Reset() { s.backend.reinit() }

// Apply runs op with its qubits mapped to the given absolute wires and its
// bits to the given classical wires. Ancillas the operation declares are
// taken from the lowest wires outside qubits and must be |0> on entry.
func (s *Simulator) Apply(op circuit.Operation, qubits, bits []int) error {
	if op == nil {
		return &WireArityError{Op: "<nil>", Detail: "nil operation"}
	}
	if len(qubits) != op.NumQubits() || len(bits) != op.NumBits() {
		return &WireArityError{
			Op:         op.Name(),
			WantQubits: op.NumQubits(),
			GotQubits:  len(qubits),
			WantBits:   op.NumBits(),
			GotBits:    len(bits),
		}
	}
	if err := s.checkWires(op, qubits, s.env.n, "qubit"); err != nil {
		return err
	}
	if err := s.checkWires(op, bits, s.env.nbits, "bit"); err != nil {
		return err
	}

	op, err := s.rewrite(op)
	if err != nil {
		return err
	}
	pool, err := s.ancillaPool(op, qubits)
	if err != nil {
		return err
	}
	return s.exec(op, qubits, bits, pool)
}

// Run applies op to the whole simulator: its declared qubits and ancillas
// must fill the register exactly and its bits must fit the classical
// register.
func (s *Simulator) Run(op circuit.Operation) error {
	if op == nil {
		return &WireArityError{Op: "<nil>", Detail: "nil operation"}
	}
	op, err := s.rewrite(op)
	if err != nil {
		return err
	}
	nq, na := op.NumQubits(), circuit.AncillaCount(op)
	if nq+na != s.env.n {
		return &DimensionError{
			Op: op.Name(), Qubits: s.env.n, Bits: s.env.nbits,
			Detail: strconv.Itoa(nq) + " qubits and " + strconv.Itoa(na) + " ancillas",
		}
	}
	if op.NumBits() > s.env.nbits {
		return &DimensionError{
			Op: op.Name(), Qubits: s.env.n, Bits: s.env.nbits,
			Detail: strconv.Itoa(op.NumBits()) + " bits",
		}
	}
	return s.exec(op, span(0, nq), span(0, op.NumBits()), span(nq, na))
}

func (s *Simulator) checkWires(op circuit.Operation, wires []int, limit int, what string) error {
	seen := make(map[int]bool, len(wires))
	for _, w := range wires {
		if w < 0 || w >= limit {
			return &DimensionError{
				Op: op.Name(), Qubits: s.env.n, Bits: s.env.nbits,
				Detail: what + " " + strconv.Itoa(w) + " out of range",
			}
		}
		if seen[w] {
			return &WireArityError{Op: op.Name(), Detail: what + " " + strconv.Itoa(w) + " mapped twice"}
		}
		seen[w] = true
	}
	return nil
}

func (s *Simulator) rewrite(op circuit.Operation) (circuit.Operation, error) {
	if s.rewriter == nil {
		return op, nil
	}
	out, err := s.rewriter.Rewrite(op)
	if err != nil {
		return nil, errors.Wrapf(err, "sim: decomposing %s", op.Name())
	}
	return out, nil
}

// ancillaPool returns the lowest wires outside qubits, one per ancilla the
// operation allocates.
func (s *Simulator) ancillaPool(op circuit.Operation, qubits []int) ([]int, error) {
	need := circuit.AncillaCount(op)
	if need == 0 {
		return nil, nil
	}
	used := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		used[q] = true
	}
	pool := make([]int, 0, need)
	for w := 0; w < s.env.n && len(pool) < need; w++ {
		if !used[w] {
			pool = append(pool, w)
		}
	}
	if len(pool) < need {
		return nil, &DimensionError{
			Op: op.Name(), Qubits: s.env.n, Bits: s.env.nbits,
			Detail: "needs " + strconv.Itoa(need) + " free ancilla wires, " + strconv.Itoa(len(pool)) + " available",
		}
	}
	return pool, nil
}

func (s *Simulator) exec(op circuit.Operation, qubits, bits, pool []int) error {
	i := 0
	for leaf, err := range circuit.Walk(op, qubits, bits, pool) {
		if err != nil {
			return err
		}
		kind := leafKind(leaf.Op)
		base, lbits, cond := split(leaf)
		if base.Kind() == circuit.KindBarrier {
			i++
			continue
		}
		if err := s.backend.apply(base, leaf.Qubits, lbits, cond); err != nil {
			return errors.Wrapf(err, "leaf %d", i)
		}
		s.env.metrics.leaf(s.env.kind, kind)
		s.env.logger.Debug("leaf applied",
			zap.Int("index", i),
			zap.String("op", leaf.Op.Name()),
			zap.Ints("qubits", leaf.Qubits),
			zap.Ints("bits", leaf.Bits))
		i++
	}
	return nil
}

func span(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}
