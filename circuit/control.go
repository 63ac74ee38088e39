package circuit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/linalg"
)

// Controlled applies its base operation on the subspace where every control
// qubit reads its pattern value. Controls occupy the leading qubit positions.
type Controlled struct {
	pattern []bool
	base    Operation
}

// NewControlled wraps base with len(pattern) control qubits. A pattern value
// of 1 controls on |1>, 0 on |0>. Wrapping a Controlled merges the patterns.
func NewControlled(base Operation, pattern ...int) (*Controlled, error) {
	if base == nil {
		return nil, structural(WireCountMismatch, -1, "", "nil base operation")
	}
	if len(pattern) == 0 {
		return nil, structural(InvalidControlValue, -1, "", "empty control pattern")
	}
	if !base.Unitary() {
		return nil, structural(NonUnitaryControl, -1, base.Name(), "")
	}
	on := make([]bool, len(pattern))
	for i, v := range pattern {
		if v != 0 && v != 1 {
			return nil, structural(InvalidControlValue, -1, "", fmt.Sprintf("control value %d", v))
		}
		on[i] = v == 1
	}
	if inner, ok := base.(*Controlled); ok {
		return &Controlled{pattern: append(on, inner.pattern...), base: inner.base}, nil
	}
	return &Controlled{pattern: on, base: base}, nil
}

// controlledOn builds a Controlled from a validated pattern.
func controlledOn(base Operation, pattern []bool) *Controlled {
	if inner, ok := base.(*Controlled); ok {
		return &Controlled{pattern: append(slices.Clone(pattern), inner.pattern...), base: inner.base}
	}
	return &Controlled{pattern: slices.Clone(pattern), base: base}
}

// MustControlled is NewControlled for arguments known to be valid.
func MustControlled(base Operation, pattern ...int) *Controlled {
	c, err := NewControlled(base, pattern...)
	if err != nil {
		panic(err)
	}
	return c
}

// CNOT is the controlled PauliX.
func CNOT() *Controlled { return controlledOn(X(), []bool{true}) }

// CZ is the controlled PauliZ.
func CZ() *Controlled { return controlledOn(Z(), []bool{true}) }

// Toffoli is the doubly controlled PauliX.
func Toffoli() *Controlled { return controlledOn(X(), []bool{true, true}) }

// Pattern returns the control values, true meaning |1>.
func (c *Controlled) Pattern() []bool { return slices.Clone(c.pattern) }
func (c *Controlled) Base() Operation { return c.base }
func (c *Controlled) Controls() int   { return len(c.pattern) }

func (c *Controlled) Name() string {
	vals := make([]string, len(c.pattern))
	for i, on := range c.pattern {
		vals[i] = "0"
		if on {
			vals[i] = "1"
		}
	}
	return "QuantumControl([" + strings.Join(vals, ", ") + "], " + c.base.Name() + ")"
}

func (c *Controlled) NumQubits() int { return len(c.pattern) + c.base.NumQubits() }
func (c *Controlled) NumBits() int   { return c.base.NumBits() }
func (c *Controlled) Kind() Kind     { return KindControlled }
func (c *Controlled) Unitary() bool  { return true }

func (c *Controlled) Inverse() (Operation, error) {
	inv, err := c.base.Inverse()
	if err != nil {
		return nil, err
	}
	if inv == c.base {
		return c, nil
	}
	return controlledOn(inv, c.pattern), nil
}

// Numeric materialises the full controlled matrix. Only gate bases have a
// matrix; larger controlled operations are simulated without one.
func (c *Controlled) Numeric(vals Values) (linalg.Matrix[linalg.Complex], error) {
	g, ok := c.base.(*Gate)
	if !ok {
		return linalg.Matrix[linalg.Complex]{}, errors.Errorf("circuit: %s has no matrix", c.Name())
	}
	m, err := g.Numeric(vals)
	if err != nil {
		return m, err
	}
	return controlledMatrix(c.pattern, m), nil
}

// Exact is Numeric over the exact domain.
func (c *Controlled) Exact(vals Values) (linalg.Matrix[linalg.Exact], error) {
	g, ok := c.base.(*Gate)
	if !ok {
		return linalg.Matrix[linalg.Exact]{}, errors.Errorf("circuit: %s has no matrix", c.Name())
	}
	m, err := g.Exact(vals)
	if err != nil {
		return m, err
	}
	return controlledMatrix(c.pattern, m), nil
}

func controlledMatrix[T linalg.Scalar[T]](pattern []bool, m linalg.Matrix[T]) linalg.Matrix[T] {
	nc := len(pattern)
	k := 0
	for 1<<k < m.Rows() {
		k++
	}
	n := nc + k
	wires := make([]int, nc)
	targets := make([]int, k)
	for i := range wires {
		wires[i] = i
	}
	for i := range targets {
		targets[i] = nc + i
	}
	return linalg.Embed(n, targets, linalg.NewControl(n, wires, pattern), m)
}

// Classical applies its base only when the leading classical bits hold the
// required values. On a mismatch it is the identity.
type Classical struct {
	values []bool
	base   Operation
}

// NewClassical conditions base on len(values) classical bits.
func NewClassical(base Operation, values ...int) (*Classical, error) {
	if base == nil {
		return nil, structural(WireCountMismatch, -1, "", "nil base operation")
	}
	if len(values) == 0 {
		return nil, structural(InvalidControlValue, -1, "", "empty classical condition")
	}
	want := make([]bool, len(values))
	for i, v := range values {
		if v != 0 && v != 1 {
			return nil, structural(InvalidControlValue, -1, "", fmt.Sprintf("classical value %d", v))
		}
		want[i] = v == 1
	}
	if inner, ok := base.(*Classical); ok {
		return &Classical{values: append(want, inner.values...), base: inner.base}, nil
	}
	return &Classical{values: want, base: base}, nil
}

func classicalOn(base Operation, values []bool) *Classical {
	if inner, ok := base.(*Classical); ok {
		return &Classical{values: append(slices.Clone(values), inner.values...), base: inner.base}
	}
	return &Classical{values: slices.Clone(values), base: base}
}

func (c *Classical) Values() []bool  { return slices.Clone(c.values) }
func (c *Classical) Base() Operation { return c.base }

// Conditions is the number of condition bits.
func (c *Classical) Conditions() int { return len(c.values) }

func (c *Classical) Name() string {
	vals := make([]string, len(c.values))
	for i, on := range c.values {
		vals[i] = "0"
		if on {
			vals[i] = "1"
		}
	}
	return "ClassicalControl([" + strings.Join(vals, ", ") + "], " + c.base.Name() + ")"
}

func (c *Classical) NumQubits() int { return c.base.NumQubits() }
func (c *Classical) NumBits() int   { return len(c.values) + c.base.NumBits() }
func (c *Classical) Kind() Kind     { return KindClassical }
func (c *Classical) Unitary() bool  { return false }

func (c *Classical) Inverse() (Operation, error) {
	inv, err := c.base.Inverse()
	if err != nil {
		return nil, err
	}
	return classicalOn(inv, c.values), nil
}

// Matches reports whether bits satisfy the condition.
func (c *Classical) Matches(bits []bool) bool {
	return slices.Equal(bits, c.values)
}
