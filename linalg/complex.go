package linalg

import (
	"math"
	"math/cmplx"
	"strconv"

	"github.com/pkg/errors"
)

// Complex is the numeric domain.
type Complex complex128

// ErrDivisionByZero is returned when inverting a zero scalar.
var ErrDivisionByZero = errors.New("linalg: division by zero")

func (c Complex) Add(o Complex) Complex { return c + o }
func (c Complex) Sub(o Complex) Complex { return c - o }
func (c Complex) Mul(o Complex) Complex { return c * o }
func (c Complex) Neg() Complex          { return -c }
func (c Complex) Conj() Complex         { return Complex(cmplx.Conj(complex128(c))) }
func (c Complex) IsZero() bool          { return c == 0 }
func (c Complex) Equal(o Complex) bool  { return c == o }
func (Complex) Zero() Complex           { return 0 }
func (Complex) One() Complex            { return 1 }
func (c Complex) Complex() complex128   { return complex128(c) }

func (c Complex) Inv() (Complex, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	return 1 / c, nil
}

// Abs2 returns |c|².
func (c Complex) Abs2() float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// Near reports whether c and o differ by at most tol.
func (c Complex) Near(o Complex, tol float64) bool {
	return cmplx.Abs(complex128(c-o)) <= tol
}

func (c Complex) String() string {
	re, im := real(c), imag(c)
	if im == 0 {
		return strconv.FormatFloat(re, 'g', 6, 64)
	}
	if re == 0 {
		return strconv.FormatFloat(im, 'g', 6, 64) + "i"
	}
	sign := "+"
	if im < 0 || math.Signbit(im) {
		sign = "-"
		im = -im
	}
	return strconv.FormatFloat(re, 'g', 6, 64) + sign + strconv.FormatFloat(im, 'g', 6, 64) + "i"
}
