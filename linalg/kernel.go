package linalg

// Wire w of an n-qubit register is bit n-1-w of a basis index: wire 0 is the
// most significant qubit, so |q0 q1 ... q(n-1)> reads left to right.
func WireBit(n, w int) int { return 1 << (n - 1 - w) }

// Control selects the basis states a gate acts on: those i with
// i&Mask == Value.
type Control struct {
	Mask  int
	Value int
}

// NewControl builds the mask for control wires and their required values.
func NewControl(n int, wires []int, on []bool) Control {
	var c Control
	for i, w := range wires {
		b := WireBit(n, w)
		c.Mask |= b
		if on[i] {
			c.Value |= b
		}
	}
	return c
}

// Apply multiplies the k-qubit matrix m into an n-qubit register stored in
// data at offsets base + i*stride, acting on targets and only on basis
// states selected by ctrl. A unitary stored row-major is updated column by
// column with base=col, stride=dim; a state vector uses base=0, stride=1.
func Apply[T Scalar[T]](data []T, n, base, stride int, targets []int, ctrl Control, m Matrix[T]) {
	k := len(targets)
	dim := 1 << k
	offsets := make([]int, dim)
	tmask := 0
	for ti, w := range targets {
		b := WireBit(n, w)
		tmask |= b
		for a := range dim {
			if (a>>(k-1-ti))&1 == 1 {
				offsets[a] |= b
			}
		}
	}

	in := make([]T, dim)
	z := zero[T]()
	size := 1 << n
	for i := 0; i < size; i++ {
		if i&tmask != 0 || i&ctrl.Mask != ctrl.Value {
			continue
		}
		for a := range dim {
			in[a] = data[base+(i|offsets[a])*stride]
		}
		for r := range dim {
			acc := z
			for c := range dim {
				e := m.At(r, c)
				if e.IsZero() {
					continue
				}
				acc = acc.Add(e.Mul(in[c]))
			}
			data[base+(i|offsets[r])*stride] = acc
		}
	}
}

// ApplyLeft replaces u with G·u where G is m embedded at targets.
func ApplyLeft[T Scalar[T]](u Matrix[T], n int, targets []int, ctrl Control, m Matrix[T]) {
	for col := range u.cols {
		Apply(u.data, n, col, u.cols, targets, ctrl, m)
	}
}

// Conjugate replaces rho with G·rho·G†.
func Conjugate[T Scalar[T]](rho Matrix[T], n int, targets []int, ctrl Control, m Matrix[T]) {
	ApplyLeft(rho, n, targets, ctrl, m)
	mc := m.Conj()
	for row := range rho.rows {
		Apply(rho.data, n, row*rho.cols, 1, targets, ctrl, mc)
	}
}

// Embed materialises m acting on targets of an n-qubit register as a full
// 2^n×2^n matrix. Intended for tests and small registers.
func Embed[T Scalar[T]](n int, targets []int, ctrl Control, m Matrix[T]) Matrix[T] {
	u := Identity[T](1 << n)
	ApplyLeft(u, n, targets, ctrl, m)
	return u
}
