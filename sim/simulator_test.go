package sim

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

func epr(t *testing.T) *circuit.Sequence {
	t.Helper()
	seq, err := circuit.NewSequence([]string{"a", "b"}, nil, []circuit.Step{
		circuit.On(circuit.H(), "a"),
		circuit.On(circuit.CNOT(), "a", "b"),
	}, circuit.WithName("EPR"))
	require.NoError(t, err)
	return seq
}

func TestEPRUnitary(t *testing.T) {
	r := 1 / math.Sqrt2
	want := linalg.FromRows([][]linalg.Complex{
		{linalg.Complex(complex(r, 0)), 0, linalg.Complex(complex(r, 0)), 0},
		{0, linalg.Complex(complex(r, 0)), 0, linalg.Complex(complex(r, 0))},
		{0, linalg.Complex(complex(r, 0)), 0, linalg.Complex(complex(-r, 0))},
		{linalg.Complex(complex(r, 0)), 0, linalg.Complex(complex(-r, 0)), 0},
	})

	for _, kind := range []Kind{UnitaryNumeric, UnitarySymbolic} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(kind, 2, 0, WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			require.NoError(t, s.Run(epr(t)))
			u, err := s.Unitary()
			require.NoError(t, err)
			assert.True(t, linalg.NearlyEqual(want, u, 1e-12), "got\n%s", u)
		})
	}

	s, err := New(UnitarySymbolic, 2, 0)
	require.NoError(t, err)
	require.NoError(t, s.Run(epr(t)))
	u, err := s.ExactUnitary()
	require.NoError(t, err)
	h, z := linalg.InvSqrt2(), linalg.Exact{}
	exactWant := linalg.FromRows([][]linalg.Exact{
		{h, z, h, z},
		{z, h, z, h},
		{z, h, z, h.Neg()},
		{h, z, h.Neg(), z},
	})
	assert.True(t, exactWant.Equal(u), "got\n%s", u)
}

func TestHadamardFrequency(t *testing.T) {
	s, err := New(StateVector, 1, 1, WithSeed(7))
	require.NoError(t, err)

	const shots = 10000
	ones := 0
	for range shots {
		s.Reset()
		require.NoError(t, s.Apply(circuit.H(), []int{0}, nil))
		require.NoError(t, s.Apply(circuit.Measure(1), []int{0}, []int{0}))
		bits, err := s.ClassicalBits()
		require.NoError(t, err)
		if bits[0] {
			ones++
		}
	}
	assert.InDelta(t, 0.5, float64(ones)/shots, 0.02)
}

func TestSeededRunsRepeat(t *testing.T) {
	record := func() []bool {
		s, err := New(StateVector, 3, 3, WithSeed(99))
		require.NoError(t, err)
		var out []bool
		for range 20 {
			s.Reset()
			for q := range 3 {
				require.NoError(t, s.Apply(circuit.H(), []int{q}, nil))
			}
			require.NoError(t, s.Apply(circuit.Measure(3), []int{0, 1, 2}, []int{0, 1, 2}))
			bits, err := s.ClassicalBits()
			require.NoError(t, err)
			out = append(out, bits...)
		}
		return out
	}
	assert.Equal(t, record(), record())
}

func roundTrip(t *testing.T) *circuit.Sequence {
	t.Helper()
	seq, err := circuit.NewSequence(circuit.Wires(3), nil, []circuit.Step{
		circuit.On(circuit.NewQFT(3, "f."), "0", "1", "2"),
		circuit.On(circuit.NewPCCM("theta", "p."), "2", "0"),
		circuit.On(circuit.Toffoli(), "1", "2", "0"),
		circuit.On(circuit.T(), "1"),
		circuit.On(circuit.Ry(circuit.Angle(math.Pi/2)), "2"),
	})
	require.NoError(t, err)
	return seq
}

func TestInverseRoundTrip(t *testing.T) {
	seq := roundTrip(t)
	inv, err := seq.Inverse()
	require.NoError(t, err)

	for _, kind := range []Kind{UnitaryNumeric, UnitarySymbolic} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(kind, 3, 0)
			require.NoError(t, err)
			require.NoError(t, s.Prepare(seq))
			s.SetValue("p.RX(theta)", math.Pi)
			require.NoError(t, s.Run(seq))
			require.NoError(t, s.Run(inv))

			u, err := s.Unitary()
			require.NoError(t, err)
			assert.True(t, linalg.NearlyEqual(linalg.Identity[linalg.Complex](8), u, 1e-12))

			if kind.Symbolic() {
				eu, err := s.ExactUnitary()
				require.NoError(t, err)
				assert.True(t, linalg.Identity[linalg.Exact](8).Equal(eu))
			}
		})
	}
}

func TestSymbolicMatchesNumeric(t *testing.T) {
	seq := roundTrip(t)
	run := func(kind Kind) linalg.Matrix[linalg.Complex] {
		s, err := New(kind, 3, 0)
		require.NoError(t, err)
		require.NoError(t, s.Prepare(seq))
		s.SetValue("p.RX(theta)", math.Pi/2)
		require.NoError(t, s.Run(seq))
		u, err := s.Unitary()
		require.NoError(t, err)
		return u
	}
	assert.True(t, linalg.NearlyEqual(run(UnitaryNumeric), run(UnitarySymbolic), 1e-12))

	density := func(kind Kind) linalg.Matrix[linalg.Complex] {
		s, err := New(kind, 3, 0)
		require.NoError(t, err)
		require.NoError(t, s.Prepare(seq))
		s.SetValue("p.RX(theta)", math.Pi/2)
		require.NoError(t, s.Run(seq))
		rho, err := s.DensityMatrix()
		require.NoError(t, err)
		return rho
	}
	assert.True(t, linalg.NearlyEqual(density(DensityNumeric), density(DensitySymbolic), 1e-12))
	assert.True(t, linalg.NearlyEqual(density(DensityNumeric), density(StateVector), 1e-12))
}

func TestQFTMatchesDFT(t *testing.T) {
	const n = 3
	N := 1 << n
	s, err := New(UnitaryNumeric, n, 0)
	require.NoError(t, err)
	qft := circuit.NewQFT(n, "")
	require.NoError(t, s.Prepare(qft))
	require.NoError(t, s.Run(qft))
	u, err := s.Unitary()
	require.NoError(t, err)

	want := linalg.NewMatrix[linalg.Complex](N, N)
	for j := range N {
		for k := range N {
			w := cmplx.Exp(complex(0, 2*math.Pi*float64(j*k)/float64(N))) / complex(math.Sqrt(float64(N)), 0)
			want.Set(j, k, linalg.Complex(w))
		}
	}
	assert.True(t, linalg.NearlyEqual(want, u, 1e-12), "got\n%s", u)

	// the symbolic backend agrees exactly once the defaults are bound
	sym, err := New(UnitarySymbolic, n, 0)
	require.NoError(t, err)
	require.NoError(t, sym.Prepare(qft))
	require.NoError(t, sym.Run(qft))
	su, err := sym.Unitary()
	require.NoError(t, err)
	assert.True(t, linalg.NearlyEqual(want, su, 1e-12))
}

func TestClassicalConditionNoOp(t *testing.T) {
	guarded, err := circuit.NewClassical(circuit.X(), 1)
	require.NoError(t, err)

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(kind, 2, 1)
			require.NoError(t, err)
			require.NoError(t, s.Apply(circuit.H(), []int{0}, nil))

			before := snapshot(t, s)
			require.NoError(t, s.Apply(guarded, []int{1}, []int{0}))
			assert.Equal(t, before, snapshot(t, s), "mismatched condition must not touch the state")
		})
	}
}

// snapshot returns the raw backend state for bit-for-bit comparisons.
func snapshot(t *testing.T, s *Simulator) []complex128 {
	t.Helper()
	if s.Kind() == StateVector {
		psi, err := s.State()
		require.NoError(t, err)
		return psi
	}
	var m linalg.Matrix[linalg.Complex]
	var err error
	if s.Kind() == UnitaryNumeric || s.Kind() == UnitarySymbolic {
		m, err = s.Unitary()
	} else {
		m, err = s.DensityMatrix()
	}
	require.NoError(t, err)
	out := make([]complex128, len(m.Data()))
	for i, v := range m.Data() {
		out[i] = complex128(v)
	}
	return out
}

func TestClassicalFeedForward(t *testing.T) {
	fix, err := circuit.NewClassical(circuit.X(), 1)
	require.NoError(t, err)
	seq, err := circuit.NewSequence([]string{"q", "r"}, []string{"m", "out"}, []circuit.Step{
		circuit.On(circuit.X(), "q"),
		{Op: circuit.Measure(1), Qubits: []string{"q"}, Bits: []string{"m"}},
		{Op: fix, Qubits: []string{"r"}, Bits: []string{"m"}},
		{Op: circuit.Measure(1), Qubits: []string{"r"}, Bits: []string{"out"}},
	})
	require.NoError(t, err)

	for _, kind := range []Kind{StateVector, DensityNumeric, DensitySymbolic} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(kind, 2, 2, WithSeed(1))
			require.NoError(t, err)
			require.NoError(t, s.Run(seq))
			bits, err := s.ClassicalBits()
			require.NoError(t, err)
			assert.Equal(t, []bool{true, true}, bits)
		})
	}
}

func TestEnumeratedMeasurement(t *testing.T) {
	s, err := New(DensitySymbolic, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, Enumerate, s.Policy())
	require.NoError(t, s.Run(epr(t)))
	require.NoError(t, s.Apply(circuit.Measure(2), []int{0, 1}, []int{0, 1}))

	_, err = s.ClassicalBits()
	assert.ErrorIs(t, err, ErrAmbiguousBits)

	outs, err := s.ExactOutcomes()
	require.NoError(t, err)
	require.Len(t, outs, 2)
	half := linalg.ExactFrac(1, 2)
	assert.Equal(t, []bool{false, false}, outs[0].Bits)
	assert.Equal(t, []bool{true, true}, outs[1].Bits)
	for _, o := range outs {
		assert.True(t, half.Equal(o.Probability), "probability %s", o.Probability)
	}

	probs, err := s.Probabilities([]int{1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, probs, 1e-12)
}

func TestCollapsedDensityMeasurement(t *testing.T) {
	s, err := New(DensityNumeric, 2, 2, WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, Collapse, s.Policy())
	require.NoError(t, s.Run(epr(t)))
	require.NoError(t, s.Apply(circuit.Measure(1), []int{0}, []int{0}))

	bits, err := s.ClassicalBits()
	require.NoError(t, err)
	rho, err := s.DensityMatrix()
	require.NoError(t, err)
	idx := 0
	if bits[0] {
		idx = 3
	}
	assert.InDelta(t, 1, real(complex128(rho.At(idx, idx))), 1e-12)
	assert.InDelta(t, 1, real(complex128(rho.Trace())), 1e-12)

	outs, err := s.Outcomes()
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.InDelta(t, 1, outs[0].Probability, 1e-12)
}

func TestReducedDensity(t *testing.T) {
	s, err := New(DensityNumeric, 2, 0)
	require.NoError(t, err)
	require.NoError(t, s.Run(epr(t)))

	half := linalg.Complex(0.5)
	for _, w := range []int{0, 1} {
		red, err := s.ReducedDensity([]int{w})
		require.NoError(t, err)
		assert.True(t, linalg.NearlyEqual(linalg.Diagonal(half, half), red, 1e-12))
	}

	full, err := s.ReducedDensity([]int{0, 1})
	require.NoError(t, err)
	rho, err := s.DensityMatrix()
	require.NoError(t, err)
	assert.True(t, rho.Equal(full))

	_, err = s.ReducedDensity([]int{0, 0})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	zero := []float64{1, 0}
	for _, kind := range []Kind{StateVector, DensityNumeric, DensitySymbolic} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := New(kind, 2, 0, WithSeed(5))
			require.NoError(t, err)
			require.NoError(t, s.Apply(circuit.X(), []int{1}, nil))
			require.NoError(t, s.Apply(circuit.H(), []int{0}, nil))
			require.NoError(t, s.Apply(circuit.Reset(2), []int{0, 1}, nil))

			for _, w := range []int{0, 1} {
				probs, err := s.Probabilities([]int{w})
				require.NoError(t, err)
				assert.InDeltaSlice(t, zero, probs, 1e-12)
			}
		})
	}

	s, err := New(UnitaryNumeric, 1, 0)
	require.NoError(t, err)
	var unsupported *UnsupportedOperationError
	assert.ErrorAs(t, s.Apply(circuit.Reset(1), []int{0}, nil), &unsupported)
}

func TestCustomGates(t *testing.T) {
	sqrtNot := linalg.FromRows([][]linalg.Complex{
		{linalg.Complex(complex(0.5, 0.5)), linalg.Complex(complex(0.5, -0.5))},
		{linalg.Complex(complex(0.5, -0.5)), linalg.Complex(complex(0.5, 0.5))},
	})
	u := circuit.Custom("V", 1)

	s, err := New(UnitaryNumeric, 1, 0)
	require.NoError(t, err)
	s.SetMatrix("V", sqrtNot)
	require.NoError(t, s.Apply(u, []int{0}, nil))
	require.NoError(t, s.Apply(u, []int{0}, nil))
	got, err := s.Unitary()
	require.NoError(t, err)
	x, err := circuit.X().Numeric(nil)
	require.NoError(t, err)
	assert.True(t, linalg.NearlyEqual(x, got, 1e-12))

	sym, err := New(UnitarySymbolic, 1, 0)
	require.NoError(t, err)
	sym.SetMatrix("V", sqrtNot)
	require.NoError(t, sym.Apply(circuit.H(), []int{0}, nil))
	before, err := sym.ExactUnitary()
	require.NoError(t, err)

	var unsupported *UnsupportedOperationError
	err = sym.Apply(u, []int{0}, nil)
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, UnitarySymbolic, unsupported.Backend)
	assert.ErrorIs(t, err, circuit.ErrNumericOnly)

	after, err := sym.ExactUnitary()
	require.NoError(t, err)
	assert.True(t, before.Equal(after), "failed leaf must leave the state unchanged")

	err = sym.Apply(circuit.Rz(circuit.Angle(0.3)), []int{0}, nil)
	require.ErrorAs(t, err, &unsupported)
	assert.ErrorIs(t, err, circuit.ErrInexact)
}

func TestApplyErrors(t *testing.T) {
	s, err := New(StateVector, 2, 1)
	require.NoError(t, err)

	var arity *WireArityError
	var dim *DimensionError

	assert.ErrorAs(t, s.Apply(circuit.CNOT(), []int{0}, nil), &arity)
	assert.ErrorAs(t, s.Apply(circuit.CNOT(), []int{1, 1}, nil), &arity)
	assert.ErrorAs(t, s.Apply(circuit.Measure(1), []int{0}, nil), &arity)
	assert.ErrorAs(t, s.Apply(nil, nil, nil), &arity)

	assert.ErrorAs(t, s.Apply(circuit.H(), []int{2}, nil), &dim)
	assert.ErrorAs(t, s.Apply(circuit.Measure(1), []int{0}, []int{1}), &dim)
	assert.ErrorAs(t, s.Run(circuit.NewQFT(3, "")), &dim)

	var unbound *circuit.UnboundParameterError
	assert.ErrorAs(t, s.Apply(circuit.Rx(circuit.Named("missing")), []int{0}, nil), &unbound)

	_, err = s.Unitary()
	assert.ErrorIs(t, err, ErrWrongBackend)
	_, err = s.ExactOutcomes()
	assert.ErrorIs(t, err, ErrWrongBackend)

	_, err = New(StateVector, 0, 0)
	assert.Error(t, err)
	_, err = New(StateVector, 1, 0, WithPolicy(Enumerate))
	assert.Error(t, err)
	_, err = New(Kind(42), 1, 0)
	assert.Error(t, err)
}

func TestAncillaPool(t *testing.T) {
	borrow, err := circuit.NewSequence([]string{"a", "b", "t"}, nil, []circuit.Step{
		circuit.On(circuit.Toffoli(), "a", "b", "anc"),
		circuit.On(circuit.CNOT(), "anc", "t"),
		circuit.On(circuit.Toffoli(), "a", "b", "anc"),
	}, circuit.WithAncillas("anc"))
	require.NoError(t, err)

	// too small for Run, and Apply has no free wire
	s, err := New(StateVector, 3, 0)
	require.NoError(t, err)
	var dim *DimensionError
	assert.ErrorAs(t, s.Run(borrow), &dim)
	assert.ErrorAs(t, s.Apply(borrow, []int{0, 1, 2}, nil), &dim)

	s, err = New(StateVector, 4, 0)
	require.NoError(t, err)
	require.NoError(t, s.Apply(circuit.X(), []int{1}, nil))
	require.NoError(t, s.Apply(circuit.X(), []int{2}, nil))
	// maps a, b, t to wires 1, 2, 3 so wire 0 is the ancilla
	require.NoError(t, s.Apply(borrow, []int{1, 2, 3}, nil))
	probs, err := s.Probabilities([]int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1, probs[0b0111], 1e-12)
}

func TestDecomposerHook(t *testing.T) {
	var calls int
	rw := rewriterFunc(func(op circuit.Operation) (circuit.Operation, error) {
		calls++
		return op, nil
	})
	s, err := New(UnitaryNumeric, 2, 0, WithDecomposer(rw))
	require.NoError(t, err)
	require.NoError(t, s.Run(epr(t)))
	require.NoError(t, s.Apply(circuit.H(), []int{1}, nil))
	assert.Equal(t, 2, calls)
}

type rewriterFunc func(circuit.Operation) (circuit.Operation, error)

func (f rewriterFunc) Rewrite(op circuit.Operation) (circuit.Operation, error) { return f(op) }

func TestWithValues(t *testing.T) {
	s, err := New(UnitaryNumeric, 1, 0, WithValues(map[string]float64{"theta": math.Pi}))
	require.NoError(t, err)
	v, ok := s.Value("theta")
	require.True(t, ok)
	assert.Equal(t, math.Pi, v)
	require.NoError(t, s.Apply(circuit.Phase(circuit.Named("theta")), []int{0}, nil))
	u, err := s.Unitary()
	require.NoError(t, err)
	z, err := circuit.Z().Numeric(nil)
	require.NoError(t, err)
	assert.True(t, linalg.NearlyEqual(z, u, 1e-12))
}
