// Package linalg holds the arithmetic domains and dense matrix routines the
// simulators are built on: a numeric complex128 domain, an exact domain over
// the eighth cyclotomic field, gate application kernels and the partial trace.
package linalg

// Scalar is the arithmetic every simulator backend needs from its domain.
// Implementations are immutable values: every operation returns a new value.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Neg() T
	Conj() T
	Inv() (T, error)
	IsZero() bool
	Equal(T) bool
	Zero() T
	One() T
	Complex() complex128
	String() string
}

// zero returns the additive identity of T.
func zero[T Scalar[T]]() T {
	var z T
	return z.Zero()
}

// one returns the multiplicative identity of T.
func one[T Scalar[T]]() T {
	var z T
	return z.One()
}
