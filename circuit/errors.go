package circuit

import (
	"fmt"

	"github.com/pkg/errors"
)

// StructuralKind classifies a malformed circuit.
type StructuralKind int

const (
	DuplicateWireLabel StructuralKind = iota
	WireCountMismatch
	UnknownWireLabel
	NonUnitaryControl
	InvalidControlValue
)

func (k StructuralKind) String() string {
	switch k {
	case DuplicateWireLabel:
		return "duplicate wire label"
	case WireCountMismatch:
		return "wire count mismatch"
	case UnknownWireLabel:
		return "unknown wire label"
	case NonUnitaryControl:
		return "quantum control of a non-unitary operation"
	case InvalidControlValue:
		return "invalid control value"
	default:
		return fmt.Sprintf("StructuralKind(%d)", int(k))
	}
}

// StructuralError reports a circuit rejected at construction time.
type StructuralError struct {
	Kind   StructuralKind
	Step   int // index of the offending step, -1 for declarations
	Label  string
	Detail string
}

func (e *StructuralError) Error() string {
	msg := "circuit: " + e.Kind.String()
	if e.Label != "" {
		msg += fmt.Sprintf(" %q", e.Label)
	}
	if e.Step >= 0 {
		msg += fmt.Sprintf(" in step %d", e.Step)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func structural(kind StructuralKind, step int, label, detail string) error {
	return &StructuralError{Kind: kind, Step: step, Label: label, Detail: detail}
}

// UnboundParameterError is returned when a named parameter has no value.
type UnboundParameterError struct {
	Name string
}

func (e *UnboundParameterError) Error() string {
	return fmt.Sprintf("circuit: parameter %q has no value", e.Name)
}

var (
	// ErrInexact is returned when a gate has no matrix over the exact domain
	// for its current parameter values.
	ErrInexact = errors.New("circuit: angle is not representable exactly")

	// ErrNumericOnly is returned when a gate only has a numeric definition.
	ErrNumericOnly = errors.New("circuit: gate is only defined numerically")

	// ErrNotInvertible is returned by Inverse for non-unitary operations.
	ErrNotInvertible = errors.New("circuit: operation is not invertible")
)
