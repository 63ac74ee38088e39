package circuit

import (
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

// Step places an operation on labelled wires of the enclosing sequence.
type Step struct {
	Op     Operation
	Qubits []string
	Bits   []string
}

// On is shorthand for a step without classical wires.
func On(op Operation, qubits ...string) Step {
	return Step{Op: op, Qubits: qubits}
}

// Sequence is an ordered composite operation over labelled wires. Ancilla
// labels are local qubits that are not part of the sequence's interface;
// they are allocated fresh every time the sequence is flattened and must be
// returned to |0>.
type Sequence struct {
	name     string
	qubits   []string
	bits     []string
	ancillas []string
	steps    []Step
}

type Option func(*Sequence)

// WithAncillas declares local ancilla qubits.
func WithAncillas(labels ...string) Option {
	return func(s *Sequence) { s.ancillas = slices.Clone(labels) }
}

// WithName gives the sequence a display name.
func WithName(name string) Option {
	return func(s *Sequence) { s.name = name }
}

// NewSequence validates and builds a sequence. Every error is a
// *StructuralError.
func NewSequence(qubits, bits []string, steps []Step, opts ...Option) (*Sequence, error) {
	s := &Sequence{
		qubits: slices.Clone(qubits),
		bits:   slices.Clone(bits),
		steps:  make([]Step, len(steps)),
	}
	for _, opt := range opts {
		opt(s)
	}

	qset := make(map[string]bool, len(qubits)+len(s.ancillas))
	for _, l := range append(slices.Clone(s.qubits), s.ancillas...) {
		if qset[l] {
			return nil, structural(DuplicateWireLabel, -1, l, "qubit declared twice")
		}
		qset[l] = true
	}
	bset := make(map[string]bool, len(bits))
	for _, l := range s.bits {
		if bset[l] {
			return nil, structural(DuplicateWireLabel, -1, l, "bit declared twice")
		}
		bset[l] = true
	}

	for i, st := range steps {
		if st.Op == nil {
			return nil, structural(WireCountMismatch, i, "", "nil operation")
		}
		if len(st.Qubits) != st.Op.NumQubits() {
			return nil, structural(WireCountMismatch, i, "",
				st.Op.Name()+" takes "+strconv.Itoa(st.Op.NumQubits())+" qubits, mapped "+strconv.Itoa(len(st.Qubits)))
		}
		if len(st.Bits) != st.Op.NumBits() {
			return nil, structural(WireCountMismatch, i, "",
				st.Op.Name()+" takes "+strconv.Itoa(st.Op.NumBits())+" bits, mapped "+strconv.Itoa(len(st.Bits)))
		}
		if err := checkMapping(i, st.Qubits, qset); err != nil {
			return nil, err
		}
		if err := checkMapping(i, st.Bits, bset); err != nil {
			return nil, err
		}
		s.steps[i] = Step{Op: st.Op, Qubits: slices.Clone(st.Qubits), Bits: slices.Clone(st.Bits)}
	}
	return s, nil
}

func checkMapping(step int, labels []string, declared map[string]bool) error {
	used := make(map[string]bool, len(labels))
	for _, l := range labels {
		if !declared[l] {
			return structural(UnknownWireLabel, step, l, "")
		}
		if used[l] {
			return structural(DuplicateWireLabel, step, l, "wire mapped twice")
		}
		used[l] = true
	}
	return nil
}

// Must panics on a construction error. For circuits built from constants.
func Must(s *Sequence, err error) *Sequence {
	if err != nil {
		panic(err)
	}
	return s
}

// Wires returns the labels "0" .. "n-1".
func Wires(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (s *Sequence) Name() string {
	if s.name == "" {
		return "Sequence"
	}
	return s.name
}

func (s *Sequence) NumQubits() int { return len(s.qubits) }
func (s *Sequence) NumBits() int   { return len(s.bits) }
func (s *Sequence) Kind() Kind     { return KindComposite }

func (s *Sequence) Unitary() bool {
	for _, st := range s.steps {
		if !st.Op.Unitary() {
			return false
		}
	}
	return true
}

func (s *Sequence) Expand() (*Sequence, error) { return s, nil }

func (s *Sequence) Qubits() []string   { return slices.Clone(s.qubits) }
func (s *Sequence) Bits() []string     { return slices.Clone(s.bits) }
func (s *Sequence) Ancillas() []string { return slices.Clone(s.ancillas) }
func (s *Sequence) Len() int           { return len(s.steps) }

// Steps returns a copy of the step list.
func (s *Sequence) Steps() []Step {
	out := make([]Step, len(s.steps))
	for i, st := range s.steps {
		out[i] = Step{Op: st.Op, Qubits: slices.Clone(st.Qubits), Bits: slices.Clone(st.Bits)}
	}
	return out
}

// Rebuild returns a sequence with the same name and wire declarations and a
// new step list, validated like NewSequence.
func (s *Sequence) Rebuild(steps []Step) (*Sequence, error) {
	return NewSequence(s.qubits, s.bits, steps, WithAncillas(s.ancillas...), WithName(s.name))
}

// Inverse reverses the steps and inverts each of them.
func (s *Sequence) Inverse() (Operation, error) {
	return s.inverse()
}

func (s *Sequence) inverse() (*Sequence, error) {
	inv := &Sequence{
		qubits:   s.qubits,
		bits:     s.bits,
		ancillas: s.ancillas,
		steps:    make([]Step, 0, len(s.steps)),
	}
	if s.name != "" {
		inv.name = "Inverse" + s.name
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		op, err := st.Op.Inverse()
		if err != nil {
			return nil, errors.Wrapf(err, "step %d (%s)", i, st.Op.Name())
		}
		inv.steps = append(inv.steps, Step{Op: op, Qubits: st.Qubits, Bits: st.Bits})
	}
	return inv, nil
}

// Leaves flattens the sequence onto its own wire order: declared qubit i is
// absolute wire i, and ancillas follow the declared qubits.
func (s *Sequence) Leaves() LeafSeq {
	n := len(s.qubits)
	return Walk(s, identity(0, n), identity(0, len(s.bits)), identity(n, AncillaCount(s)))
}

func identity(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}
