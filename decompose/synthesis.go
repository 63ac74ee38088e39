package decompose

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

// MaxSynthesisQubits bounds FromUnitary and StatePreparation. A dense
// unitary needs up to 4^n/2 two-level steps.
const MaxSynthesisQubits = 8

const (
	unitaryTolerance = 1e-9
	angleTolerance   = 1e-12
)

// synth accumulates named-parameter steps over a fixed set of wires and
// binds every parameter it introduces in its table.
type synth struct {
	prefix string
	wires  []string
	steps  []circuit.Step
	table  *circuit.Table
}

func newSynth(n int, prefix string) *synth {
	return &synth{prefix: prefix, wires: circuit.Wires(n), table: circuit.NewTable()}
}

func (s *synth) add(op circuit.Operation, qubits ...string) {
	s.steps = append(s.steps, circuit.On(op, qubits...))
}

func (s *synth) param(name string, v float64) circuit.Param {
	full := s.prefix + name
	s.table.Set(full, v)
	return circuit.Named(full)
}

func (s *synth) sequence() (*circuit.Sequence, error) {
	return circuit.NewSequence(s.wires, nil, s.steps)
}

// onPattern controls op by pattern. An empty pattern leaves op bare.
func onPattern(op circuit.Operation, pattern []int) circuit.Operation {
	if len(pattern) == 0 {
		return op
	}
	return circuit.MustControlled(op, pattern...)
}

// patternOf spells p as k control values, most significant wire first.
func patternOf(p, k int) []int {
	out := make([]int, k)
	for w := range k {
		shift := k - 1 - w
		out[w] = p >> shift & 1
	}
	return out
}

// diagonal emits diag(e^{iφ_0}, ..., e^{iφ_{N-1}}) as phases on the last
// wire controlled by every pattern of the others.
func (s *synth) diagonal(phases []float64) {
	n := len(s.wires)
	target := s.wires[n-1]
	emit := func(bit int, tag string) {
		for p := range len(phases) / 2 {
			theta := phases[2*p+bit]
			if math.Abs(theta) < angleTolerance {
				continue
			}
			ph := circuit.Phase(s.param(tag+strconv.Itoa(p), theta))
			s.add(onPattern(ph, patternOf(p, n-1)), s.wires...)
		}
	}

	zero := false
	for p := range len(phases) / 2 {
		zero = zero || math.Abs(phases[2*p]) >= angleTolerance
	}
	if zero {
		s.add(circuit.X(), target)
		emit(0, "ph0_")
		s.add(circuit.X(), target)
	}
	emit(1, "ph1_")
}

// euler writes a 2x2 unitary as e^{iα} Rz(β) Ry(γ) Rz(δ).
func euler(u linalg.Matrix[linalg.Complex]) (alpha, beta, gamma, delta float64) {
	u00, u01 := u.At(0, 0).Complex(), u.At(0, 1).Complex()
	u10, u11 := u.At(1, 0).Complex(), u.At(1, 1).Complex()
	alpha = cmplx.Phase(u00*u11-u01*u10) / 2
	shift := cmplx.Exp(complex(0, -alpha))
	a, b := u00*shift, u10*shift

	gamma = 2 * math.Atan2(cmplx.Abs(b), cmplx.Abs(a))
	var sum, diff float64
	if cmplx.Abs(a) > angleTolerance {
		sum = -2 * cmplx.Phase(a)
	}
	if cmplx.Abs(b) > angleTolerance {
		diff = 2 * cmplx.Phase(b)
	}
	return alpha, (sum + diff) / 2, gamma, (sum - diff) / 2
}

// rotations emits u on the last of qubits controlled by pattern on the
// others, as controlled Rz, Ry and Rz steps followed by the phase e^{iα} on
// the controlled subspace. Parameters are named tag+"alpha" and so on.
func (s *synth) rotations(u linalg.Matrix[linalg.Complex], pattern []int, qubits []string, tag string) {
	alpha, beta, gamma, delta := euler(u)
	target := qubits[len(qubits)-1]
	for _, r := range []struct {
		name  string
		theta float64
		gate  func(circuit.Param) *circuit.Gate
	}{
		{"delta", delta, circuit.Rz},
		{"gamma", gamma, circuit.Ry},
		{"beta", beta, circuit.Rz},
	} {
		if math.Abs(r.theta) < angleTolerance {
			continue
		}
		s.add(onPattern(r.gate(s.param(tag+r.name, r.theta)), pattern), qubits...)
	}
	if math.Abs(alpha) < angleTolerance {
		return
	}

	ph := s.param(tag+"alpha", alpha)
	if len(pattern) == 0 {
		// e^{iα} I = P(α) X P(α) X
		s.add(circuit.Phase(ph), target)
		s.add(circuit.X(), target)
		s.add(circuit.Phase(ph), target)
		s.add(circuit.X(), target)
		return
	}
	k := len(pattern)
	last := qubits[k-1]
	if pattern[k-1] == 0 {
		s.add(circuit.X(), last)
	}
	s.add(onPattern(circuit.Phase(ph), pattern[:k-1]), qubits[:k]...)
	if pattern[k-1] == 0 {
		s.add(circuit.X(), last)
	}
}

func checkUnitary(u linalg.Matrix[linalg.Complex], rows int) error {
	if u.Rows() != rows || u.Cols() != rows {
		return errors.Errorf("decompose: %dx%d matrix, want %dx%d", u.Rows(), u.Cols(), rows, rows)
	}
	if !linalg.NearlyEqual(u.Mul(u.Adjoint()), linalg.Identity[linalg.Complex](rows), unitaryTolerance) {
		return errors.New("decompose: matrix is not unitary")
	}
	return nil
}

// qubitCount returns n for a length of 2^n, n between 1 and
// MaxSynthesisQubits.
func qubitCount(length int) (int, error) {
	if length < 2 || length&(length-1) != 0 {
		return 0, errors.Errorf("decompose: dimension %d is not a power of two", length)
	}
	n := bits.TrailingZeros(uint(length))
	if n > MaxSynthesisQubits {
		return 0, errors.Errorf("decompose: %d qubits exceed the synthesis limit %d", n, MaxSynthesisQubits)
	}
	return n, nil
}

// StatePreparation returns a sequence that takes |0...0> to the normalised
// amplitude vector, together with the values of the parameters it names.
// Wire 0 is the most significant bit of the amplitude index.
func StatePreparation(amplitudes []complex128, prefix string) (*circuit.Sequence, *circuit.Table, error) {
	n, err := qubitCount(len(amplitudes))
	if err != nil {
		return nil, nil, err
	}
	probs := make([]float64, len(amplitudes))
	phases := make([]float64, len(amplitudes))
	for i, a := range amplitudes {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
		phases[i] = cmplx.Phase(a)
	}
	if norm := floats.Sum(probs); math.Abs(norm-1) > unitaryTolerance {
		return nil, nil, errors.Errorf("decompose: amplitudes have norm² %g, want 1", norm)
	}

	s := newSynth(n, prefix)
	for k := range n {
		// subtree of prefix p over wires 0..k spans 2^(n-k-1) amplitudes per half
		width := 1 << (n - k - 1)
		for p := range 1 << k {
			lo := 2 * p * width
			zero := floats.Sum(probs[lo : lo+width])
			one := floats.Sum(probs[lo+width : lo+2*width])
			theta := 2 * math.Atan2(math.Sqrt(one), math.Sqrt(zero))
			if math.Abs(theta) < angleTolerance {
				continue
			}
			ry := circuit.Ry(s.param(fmt.Sprintf("ry%d_%d", k, p), theta))
			s.add(onPattern(ry, patternOf(p, k)), s.wires[:k+1]...)
		}
	}
	s.diagonal(phases)

	seq, err := s.sequence()
	if err != nil {
		return nil, nil, err
	}
	return seq, s.table, nil
}

// givens is one two-level step of FromUnitary: the 2x2 unitary m acts on
// wire target where every other wire reads pattern.
type givens struct {
	target  int
	pattern []int
	m       linalg.Matrix[linalg.Complex]
}

// FromUnitary rewrites u into controlled phases followed by controlled
// single-qubit steps. The steps come from two-level rotations taken in
// Gray-code order, so each one touches a single wire. With rotations false
// every two-level step is a custom gate named prefix+"G"+k whose matrix is
// bound in the returned table; with rotations true it is spelled as Rz, Ry
// and Rz angles instead. Wire 0 is the most significant bit of the matrix index.
func FromUnitary(u linalg.Matrix[linalg.Complex], prefix string, rotations bool) (*circuit.Sequence, *circuit.Table, error) {
	n, err := qubitCount(u.Rows())
	if err != nil {
		return nil, nil, err
	}
	if err := checkUnitary(u, 1<<n); err != nil {
		return nil, nil, err
	}

	dim := 1 << n
	w := u.Clone()
	gray := func(j int) int { return j ^ j>>1 }
	var steps []givens
	for j := range dim - 1 {
		col := gray(j)
		for r := dim - 1; r > j; r-- {
			a, b := gray(r-1), gray(r)
			x, y := w.At(a, col), w.At(b, col)
			if cmplx.Abs(y.Complex()) < angleTolerance {
				continue
			}
			norm := linalg.Complex(complex(math.Hypot(cmplx.Abs(x.Complex()), cmplx.Abs(y.Complex())), 0))
			// rows (a, b) become (norm, 0) in column col
			m00, m01 := x.Conj()/norm, y.Conj()/norm
			m10, m11 := -y/norm, x/norm
			for c := range dim {
				ra, rb := w.At(a, c), w.At(b, c)
				w.Set(a, c, m00*ra+m01*rb)
				w.Set(b, c, m10*ra+m11*rb)
			}
			steps = append(steps, twoLevel(n, a, b, m00, m01, m10, m11))
		}
	}

	s := newSynth(n, prefix)
	phases := make([]float64, dim)
	for i := range dim {
		phases[i] = cmplx.Phase(w.At(i, i).Complex())
	}
	s.diagonal(phases)

	// w = G_K ... G_1 u is diagonal, so u = G_1† ... G_K† w
	for k := len(steps) - 1; k >= 0; k-- {
		g := steps[k]
		qubits := make([]string, 0, n)
		for i, l := range s.wires {
			if i != g.target {
				qubits = append(qubits, l)
			}
		}
		qubits = append(qubits, s.wires[g.target])
		inv := g.m.Adjoint()
		tag := "G" + strconv.Itoa(k)
		if rotations {
			s.rotations(inv, g.pattern, qubits, tag+".")
			continue
		}
		s.table.SetMatrix(s.prefix+tag, inv)
		s.add(onPattern(circuit.Custom(s.prefix+tag, 1), g.pattern), qubits...)
	}

	seq, err := s.sequence()
	if err != nil {
		return nil, nil, err
	}
	return seq, s.table, nil
}

// twoLevel places the rotation on rows (a, b) onto the wire where a and b
// differ, in |0>, |1> order.
func twoLevel(n, a, b int, m00, m01, m10, m11 linalg.Complex) givens {
	diff := a ^ b
	target := n - 1 - bits.TrailingZeros(uint(diff))
	g := givens{target: target}
	for wire := range n {
		if wire == target {
			continue
		}
		v := 0
		if a&linalg.WireBit(n, wire) != 0 {
			v = 1
		}
		g.pattern = append(g.pattern, v)
	}
	if a&linalg.WireBit(n, target) == 0 {
		g.m = linalg.FromRows([][]linalg.Complex{{m00, m01}, {m10, m11}})
	} else {
		g.m = linalg.FromRows([][]linalg.Complex{{m11, m10}, {m01, m00}})
	}
	return g
}

// ControlledUnitary decomposes the single-qubit unitary u controlled by
// pattern into Rz, Ry and phase steps within the control limit. The
// sequence acts on the controls followed by the target; its parameters are
// named with prefix and bound in the returned table.
func (d *Decomposer) ControlledUnitary(u linalg.Matrix[linalg.Complex], pattern []int, prefix string) (*circuit.Sequence, *circuit.Table, error) {
	if err := checkUnitary(u, 2); err != nil {
		return nil, nil, err
	}
	if err := checkPattern(pattern); err != nil {
		return nil, nil, err
	}
	s := newSynth(len(pattern)+1, prefix)
	s.rotations(u, pattern, s.wires, "")
	d.metrics.record("euler")
	d.logger.Debug("controlled unitary",
		zap.String("prefix", prefix),
		zap.Int("controls", len(pattern)))
	return d.finish(s)
}

// ControlledPhase decomposes the phase gate P(theta) controlled by pattern
// within the control limit. The angle is bound under prefix+"theta".
func (d *Decomposer) ControlledPhase(theta float64, pattern []int, prefix string) (*circuit.Sequence, *circuit.Table, error) {
	if err := checkPattern(pattern); err != nil {
		return nil, nil, err
	}
	s := newSynth(len(pattern)+1, prefix)
	s.add(onPattern(circuit.Phase(s.param("theta", theta)), pattern), s.wires...)
	return d.finish(s)
}

func checkPattern(pattern []int) error {
	for _, v := range pattern {
		if v != 0 && v != 1 {
			return errors.Errorf("decompose: control value %d", v)
		}
	}
	return nil
}

// finish rewrites the synthesised steps down to the control limit.
func (d *Decomposer) finish(s *synth) (*circuit.Sequence, *circuit.Table, error) {
	seq, err := s.sequence()
	if err != nil {
		return nil, nil, err
	}
	op, err := d.Rewrite(seq)
	if err != nil {
		return nil, nil, err
	}
	out, ok := op.(*circuit.Sequence)
	if !ok {
		return nil, nil, errors.Errorf("decompose: rewrite returned %T", op)
	}
	return out, s.table, nil
}
