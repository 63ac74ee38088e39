// Package circuit is the circuit data model: elementary gates, measurements,
// quantum and classical control, namespaces and nested sequences, together
// with the flattening traversal every simulator and adapter consumes.
package circuit

import (
	"fmt"
	"slices"
)

// Kind tags the variants of Operation. Traversal code switches on it.
type Kind int

const (
	KindGate Kind = iota
	KindControlled
	KindClassical
	KindMeasure
	KindReset
	KindBarrier
	KindComposite
	KindScoped
)

var kindNames = [...]string{
	KindGate:       "gate",
	KindControlled: "controlled",
	KindClassical:  "classical",
	KindMeasure:    "measure",
	KindReset:      "reset",
	KindBarrier:    "barrier",
	KindComposite:  "composite",
	KindScoped:     "scoped",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Operation is anything that can be placed on wires. Operations are
// immutable once constructed and may be shared between sequences.
type Operation interface {
	// Name is stable and encodes parameters and namespace prefixes.
	Name() string
	NumQubits() int
	NumBits() int
	Kind() Kind
	// Unitary reports whether the operation is a pure unitary, i.e. it
	// contains no measurement, reset or classical condition.
	Unitary() bool
	// Inverse returns the adjoint operation, or ErrNotInvertible.
	Inverse() (Operation, error)
}

// Expander is implemented by composite operations.
type Expander interface {
	Operation
	Expand() (*Sequence, error)
}

// Defaulter is implemented by operations that ship default values for the
// named parameters they introduce.
type Defaulter interface {
	Defaults() map[string]float64
}

// Equal reports whether a and b denote the same gate type. Sequences are
// compared step by step and gates by Key; everything else by name, wire
// counts and kind.
func Equal(a, b Operation) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() || a.NumQubits() != b.NumQubits() || a.NumBits() != b.NumBits() {
		return false
	}
	switch x := a.(type) {
	case *Sequence:
		if y, ok := b.(*Sequence); ok {
			return sequencesEqual(x, y)
		}
	case *Gate:
		if y, ok := b.(*Gate); ok {
			return x.Key() == y.Key()
		}
	case *Controlled:
		if y, ok := b.(*Controlled); ok {
			return slices.Equal(x.pattern, y.pattern) && Equal(x.base, y.base)
		}
	}
	return a.Name() == b.Name()
}

func sequencesEqual(a, b *Sequence) bool {
	if a.name != b.name || len(a.steps) != len(b.steps) ||
		!slices.Equal(a.qubits, b.qubits) || !slices.Equal(a.bits, b.bits) ||
		!slices.Equal(a.ancillas, b.ancillas) {
		return false
	}
	for i := range a.steps {
		sa, sb := a.steps[i], b.steps[i]
		if !Equal(sa.Op, sb.Op) || !slices.Equal(sa.Qubits, sb.Qubits) || !slices.Equal(sa.Bits, sb.Bits) {
			return false
		}
	}
	return true
}

// Measurement measures each of its qubits into the bit at the same position.
type Measurement struct{ n int }

// Measure returns a measurement of n qubits into n bits.
func Measure(n int) *Measurement { return &Measurement{n: n} }

func (m *Measurement) Name() string                { return fmt.Sprintf("Measure(%d)", m.n) }
func (m *Measurement) NumQubits() int              { return m.n }
func (m *Measurement) NumBits() int                { return m.n }
func (m *Measurement) Kind() Kind                  { return KindMeasure }
func (m *Measurement) Unitary() bool               { return false }
func (m *Measurement) Inverse() (Operation, error) { return nil, ErrNotInvertible }

// ResetOp returns its qubits to |0>.
type ResetOp struct{ n int }

// Reset returns a reset of n qubits.
func Reset(n int) *ResetOp { return &ResetOp{n: n} }

func (r *ResetOp) Name() string                { return fmt.Sprintf("Reset(%d)", r.n) }
func (r *ResetOp) NumQubits() int              { return r.n }
func (r *ResetOp) NumBits() int                { return 0 }
func (r *ResetOp) Kind() Kind                  { return KindReset }
func (r *ResetOp) Unitary() bool               { return false }
func (r *ResetOp) Inverse() (Operation, error) { return nil, ErrNotInvertible }

// BarrierOp is a scheduling marker that acts as the identity.
type BarrierOp struct{ n int }

func Barrier(n int) *BarrierOp { return &BarrierOp{n: n} }

func (b *BarrierOp) Name() string                { return fmt.Sprintf("Barrier(%d)", b.n) }
func (b *BarrierOp) NumQubits() int              { return b.n }
func (b *BarrierOp) NumBits() int                { return 0 }
func (b *BarrierOp) Kind() Kind                  { return KindBarrier }
func (b *BarrierOp) Unitary() bool               { return true }
func (b *BarrierOp) Inverse() (Operation, error) { return b, nil }
