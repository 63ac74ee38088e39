package linalg

import (
	"fmt"
	"strings"
)

// Matrix is a dense row-major matrix over T. Copies of a Matrix share their
// storage; use Clone before mutating a matrix that is visible elsewhere.
type Matrix[T Scalar[T]] struct {
	rows, cols int
	data       []T
}

// NewMatrix returns a rows×cols zero matrix.
func NewMatrix[T Scalar[T]](rows, cols int) Matrix[T] {
	m := Matrix[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
	z := zero[T]()
	for i := range m.data {
		m.data[i] = z
	}
	return m
}

// Identity returns the n×n identity.
func Identity[T Scalar[T]](n int) Matrix[T] {
	m := NewMatrix[T](n, n)
	o := one[T]()
	for i := range n {
		m.data[i*n+i] = o
	}
	return m
}

// FromRows builds a matrix from equal-length rows.
func FromRows[T Scalar[T]](rows [][]T) Matrix[T] {
	if len(rows) == 0 {
		return Matrix[T]{}
	}
	m := Matrix[T]{rows: len(rows), cols: len(rows[0]), data: make([]T, 0, len(rows)*len(rows[0]))}
	for _, r := range rows {
		if len(r) != m.cols {
			panic("linalg: ragged rows")
		}
		m.data = append(m.data, r...)
	}
	return m
}

// Diagonal returns the square matrix with d on its diagonal.
func Diagonal[T Scalar[T]](d ...T) Matrix[T] {
	m := NewMatrix[T](len(d), len(d))
	for i, v := range d {
		m.data[i*len(d)+i] = v
	}
	return m
}

func (m Matrix[T]) Rows() int         { return m.rows }
func (m Matrix[T]) Cols() int         { return m.cols }
func (m Matrix[T]) At(r, c int) T     { return m.data[r*m.cols+c] }
func (m Matrix[T]) Set(r, c int, v T) { m.data[r*m.cols+c] = v }

// Data exposes the row-major backing slice.
func (m Matrix[T]) Data() []T { return m.data }

func (m Matrix[T]) Clone() Matrix[T] {
	c := Matrix[T]{rows: m.rows, cols: m.cols, data: make([]T, len(m.data))}
	copy(c.data, m.data)
	return c
}

// Mul returns m·o.
func (m Matrix[T]) Mul(o Matrix[T]) Matrix[T] {
	if m.cols != o.rows {
		panic(fmt.Sprintf("linalg: cannot multiply %dx%d by %dx%d", m.rows, m.cols, o.rows, o.cols))
	}
	out := NewMatrix[T](m.rows, o.cols)
	for r := range m.rows {
		for k := range m.cols {
			a := m.At(r, k)
			if a.IsZero() {
				continue
			}
			for c := range o.cols {
				b := o.At(k, c)
				if b.IsZero() {
					continue
				}
				out.data[r*o.cols+c] = out.data[r*o.cols+c].Add(a.Mul(b))
			}
		}
	}
	return out
}

// Kron returns the Kronecker product m ⊗ o.
func (m Matrix[T]) Kron(o Matrix[T]) Matrix[T] {
	out := NewMatrix[T](m.rows*o.rows, m.cols*o.cols)
	for r1 := range m.rows {
		for c1 := range m.cols {
			a := m.At(r1, c1)
			if a.IsZero() {
				continue
			}
			for r2 := range o.rows {
				for c2 := range o.cols {
					out.Set(r1*o.rows+r2, c1*o.cols+c2, a.Mul(o.At(r2, c2)))
				}
			}
		}
	}
	return out
}

// Adjoint returns the conjugate transpose.
func (m Matrix[T]) Adjoint() Matrix[T] {
	out := NewMatrix[T](m.cols, m.rows)
	for r := range m.rows {
		for c := range m.cols {
			out.Set(c, r, m.At(r, c).Conj())
		}
	}
	return out
}

// Conj returns the elementwise conjugate.
func (m Matrix[T]) Conj() Matrix[T] {
	out := Matrix[T]{rows: m.rows, cols: m.cols, data: make([]T, len(m.data))}
	for i, v := range m.data {
		out.data[i] = v.Conj()
	}
	return out
}

// Add returns m+o.
func (m Matrix[T]) Add(o Matrix[T]) Matrix[T] {
	out := m.Clone()
	for i := range out.data {
		out.data[i] = out.data[i].Add(o.data[i])
	}
	return out
}

// Scale multiplies every entry by s.
func (m Matrix[T]) Scale(s T) Matrix[T] {
	out := m.Clone()
	for i := range out.data {
		out.data[i] = out.data[i].Mul(s)
	}
	return out
}

func (m Matrix[T]) Trace() T {
	t := zero[T]()
	for i := range min(m.rows, m.cols) {
		t = t.Add(m.At(i, i))
	}
	return t
}

// Equal compares entries with the domain's own equality.
func (m Matrix[T]) Equal(o Matrix[T]) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		if !m.data[i].Equal(o.data[i]) {
			return false
		}
	}
	return true
}

// IsHermitian reports whether m equals its adjoint.
func (m Matrix[T]) IsHermitian() bool {
	return m.rows == m.cols && m.Equal(m.Adjoint())
}

func (m Matrix[T]) String() string {
	var sb strings.Builder
	for r := range m.rows {
		sb.WriteString("[")
		for c := range m.cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.At(r, c).String())
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

// ToComplex converts any matrix to the numeric domain.
func ToComplex[T Scalar[T]](m Matrix[T]) Matrix[Complex] {
	out := Matrix[Complex]{rows: m.rows, cols: m.cols, data: make([]Complex, len(m.data))}
	for i, v := range m.data {
		out.data[i] = Complex(v.Complex())
	}
	return out
}

// NearlyEqual compares two numeric matrices entrywise within tol.
func NearlyEqual(a, b Matrix[Complex], tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i := range a.data {
		if !a.data[i].Near(b.data[i], tol) {
			return false
		}
	}
	return true
}
