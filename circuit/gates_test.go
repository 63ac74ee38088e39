package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qdeck/linalg"
)

func mustPermute(t *testing.T, order ...int) *Gate {
	t.Helper()
	g, err := PermuteQubits(order...)
	require.NoError(t, err)
	return g
}

func exactGates(t *testing.T) []*Gate {
	return []*Gate{
		H(), X(), Y(), Z(), S(), T(), SX(), Swap(), I(), Sdg(), Tdg(),
		Phase(Angle(math.Pi / 4)),
		Phase(Angle(-3 * math.Pi / 4)),
		InversePhase(Angle(math.Pi / 2)),
		Rx(Angle(math.Pi / 2)),
		Rx(Angle(3 * math.Pi / 2)),
		Ry(Angle(-math.Pi / 2)),
		Rz(Angle(math.Pi)),
		Rzz(Angle(math.Pi / 2)),
		mustPermute(t, 2, 0, 1),
	}
}

func TestGateExactMatchesNumeric(t *testing.T) {
	for _, g := range exactGates(t) {
		t.Run(g.Name(), func(t *testing.T) {
			num, err := g.Numeric(nil)
			require.NoError(t, err)
			ex, err := g.Exact(nil)
			require.NoError(t, err)

			assert.True(t, linalg.NearlyEqual(linalg.ToComplex(ex), num, 1e-12),
				"exact:\n%snumeric:\n%s", ex, num)
			assert.True(t, ex.Mul(ex.Adjoint()).Equal(linalg.Identity[linalg.Exact](ex.Rows())),
				"not unitary:\n%s", ex)
		})
	}
}

func TestGateInverse(t *testing.T) {
	for _, g := range exactGates(t) {
		t.Run(g.Name(), func(t *testing.T) {
			inv, err := g.Inverse()
			require.NoError(t, err)
			ig, ok := inv.(*Gate)
			require.True(t, ok)

			m, err := g.Exact(nil)
			require.NoError(t, err)
			im, err := ig.Exact(nil)
			require.NoError(t, err)
			assert.True(t, im.Mul(m).Equal(linalg.Identity[linalg.Exact](m.Rows())))

			back, err := ig.Inverse()
			require.NoError(t, err)
			assert.True(t, Equal(g, back))
		})
	}
}

func TestGateNames(t *testing.T) {
	assert.Equal(t, "Hadamard", H().Name())
	assert.Equal(t, "InverseSGate", Sdg().Name())
	assert.Equal(t, "Phase(pi/2)", Phase(Angle(math.Pi/2)).Name())
	assert.Equal(t, "InversePhase(Ph1)", InversePhase(Named("Ph1")).Name())
	assert.Equal(t, "PermuteQubits([2, 0, 1])", mustPermute(t, 2, 0, 1).Name())

	inv, err := mustPermute(t, 2, 0, 1).Inverse()
	require.NoError(t, err)
	assert.Equal(t, "PermuteQubits([1, 2, 0])", inv.Name())

	h, err := H().Inverse()
	require.NoError(t, err)
	assert.Same(t, H().fam, h.(*Gate).fam)
	assert.False(t, h.(*Gate).Dagger())
}

func TestNewGate(t *testing.T) {
	g, err := NewGate("sdg")
	require.NoError(t, err)
	assert.True(t, Equal(Sdg(), g))

	g, err = NewGate("RX", Angle(1))
	require.NoError(t, err)
	assert.Equal(t, "rx", g.Mnemonic())

	_, err = NewGate("rx")
	assert.Error(t, err)
	_, err = NewGate("u3", Angle(1), Angle(2), Angle(3))
	assert.Error(t, err)

	assert.True(t, IsGate("tdg"))
	assert.False(t, IsGate("ccx"))
}

func TestGateInexactAngle(t *testing.T) {
	_, err := Rx(Angle(0.3)).Exact(nil)
	assert.ErrorIs(t, err, ErrInexact)

	// π/4 is exact for a phase but not for a rotation's half angle
	_, err = Phase(Angle(math.Pi / 4)).Exact(nil)
	assert.NoError(t, err)
	_, err = Rz(Angle(math.Pi / 4)).Exact(nil)
	assert.ErrorIs(t, err, ErrInexact)
}

func TestGateNamedParameters(t *testing.T) {
	table := NewTable()
	table.Set("a", math.Pi/8)

	g := Phase(Named("a").Scaled(2))
	ex, err := g.Exact(table)
	require.NoError(t, err)
	assert.True(t, ex.Equal(linalg.Diagonal(linalg.ExactInt(1), linalg.Zeta(1))))

	_, err = Phase(Named("b")).Numeric(table)
	var unbound *UnboundParameterError
	assert.ErrorAs(t, err, &unbound)

	p := g.Prefixed("ns.")
	assert.Equal(t, "ns.a", p.Params()[0].Name)
	assert.Equal(t, "a", g.Params()[0].Name, "prefixing must not mutate the original")
}

func TestCustomGate(t *testing.T) {
	g := Custom("U", 1)
	_, err := g.Exact(nil)
	assert.ErrorIs(t, err, ErrNumericOnly)

	_, err = g.Numeric(NewTable())
	assert.Error(t, err)

	table := NewTable()
	u := linalg.FromRows([][]linalg.Complex{{0, 1}, {1, 0}})
	table.SetMatrix("U", u)
	m, err := g.Numeric(table)
	require.NoError(t, err)
	assert.True(t, m.Equal(u))

	table.SetMatrix("U", linalg.Identity[linalg.Complex](4))
	_, err = g.Numeric(table)
	assert.Error(t, err)
}

func TestPermuteQubits(t *testing.T) {
	swap, err := Swap().Numeric(nil)
	require.NoError(t, err)
	perm, err := mustPermute(t, 1, 0).Numeric(nil)
	require.NoError(t, err)
	assert.True(t, swap.Equal(perm))

	_, err = PermuteQubits(0, 0, 1)
	assert.Error(t, err)
	_, err = PermuteQubits(0, 3)
	assert.Error(t, err)
}

func TestControlledMatrix(t *testing.T) {
	cnot, err := CNOT().Exact(nil)
	require.NoError(t, err)
	o, z := linalg.ExactInt(1), linalg.Exact{}
	want := linalg.FromRows([][]linalg.Exact{
		{o, z, z, z},
		{z, o, z, z},
		{z, z, z, o},
		{z, z, o, z},
	})
	assert.True(t, cnot.Equal(want), "got\n%s", cnot)

	neg := MustControlled(X(), 0)
	m, err := neg.Exact(nil)
	require.NoError(t, err)
	want = linalg.FromRows([][]linalg.Exact{
		{z, o, z, z},
		{o, z, z, z},
		{z, z, o, z},
		{z, z, z, o},
	})
	assert.True(t, m.Equal(want), "got\n%s", m)

	ccx := MustControlled(CNOT(), 1)
	assert.Equal(t, 3, ccx.NumQubits())
	assert.True(t, Equal(Toffoli(), ccx))
}
