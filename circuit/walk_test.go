package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leafView struct {
	name   string
	qubits []int
	bits   []int
}

func view(t *testing.T, op Operation) []leafView {
	t.Helper()
	leaves, err := Flatten(op)
	require.NoError(t, err)
	out := make([]leafView, len(leaves))
	for i, l := range leaves {
		out[i] = leafView{name: l.Op.Name(), qubits: l.Qubits, bits: l.Bits}
	}
	return out
}

func TestFlattenNested(t *testing.T) {
	inner := bell(t)
	outer := Must(NewSequence([]string{"x", "y", "z"}, nil, []Step{
		On(inner, "z", "x"),
		On(X(), "y"),
		On(inner, "y", "z"),
	}))

	got := view(t, outer)
	want := []leafView{
		{"Hadamard", []int{2}, nil},
		{"QuantumControl([1], PauliX)", []int{2, 0}, nil},
		{"PauliX", []int{1}, nil},
		{"Hadamard", []int{1}, nil},
		{"QuantumControl([1], PauliX)", []int{1, 2}, nil},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].name, got[i].name, "leaf %d", i)
		assert.Equal(t, want[i].qubits, got[i].qubits, "leaf %d", i)
	}
}

func TestFlattenIsRestartable(t *testing.T) {
	seq := Must(NewSequence(Wires(3), nil, []Step{
		On(NewQFT(3, ""), "0", "1", "2"),
		On(Toffoli(), "2", "0", "1"),
	}))
	leaves := seq.Leaves()

	var first, second []string
	for l, err := range leaves {
		require.NoError(t, err)
		first = append(first, l.Op.Name())
	}
	for l, err := range leaves {
		require.NoError(t, err)
		second = append(second, l.Op.Name())
	}
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)

	// early break leaves no state behind
	for range leaves {
		break
	}
	var third []string
	for l, err := range leaves {
		require.NoError(t, err)
		third = append(third, l.Op.Name())
	}
	assert.Equal(t, first, third)
}

func TestFlattenPushesControlsDown(t *testing.T) {
	ctrl := MustControlled(bell(t), 1)
	got := view(t, ctrl)
	require.Len(t, got, 2)
	assert.Equal(t, "QuantumControl([1], Hadamard)", got[0].name)
	assert.Equal(t, []int{0, 1}, got[0].qubits)
	assert.Equal(t, "QuantumControl([1, 1], PauliX)", got[1].name)
	assert.Equal(t, []int{0, 1, 2}, got[1].qubits)

	negNested := MustControlled(MustControlled(bell(t), 0), 1)
	got = view(t, negNested)
	assert.Equal(t, "QuantumControl([1, 0, 1], PauliX)", got[1].name)
	assert.Equal(t, []int{0, 1, 2, 3}, got[1].qubits)
}

func TestFlattenClassicalCondition(t *testing.T) {
	body := Must(NewSequence([]string{"q"}, []string{"m"}, []Step{
		On(X(), "q"),
		{Op: Measure(1), Qubits: []string{"q"}, Bits: []string{"m"}},
	}))
	cond, err := NewClassical(body, 1)
	require.NoError(t, err)
	require.Equal(t, 2, cond.NumBits())

	seq := Must(NewSequence([]string{"q"}, []string{"flag", "out"}, []Step{
		{Op: cond, Qubits: []string{"q"}, Bits: []string{"flag", "out"}},
	}))
	leaves, err := Flatten(seq)
	require.NoError(t, err)
	require.Len(t, leaves, 2)

	c0, ok := leaves[0].Op.(*Classical)
	require.True(t, ok)
	assert.Equal(t, "PauliX", c0.Base().Name())
	assert.Equal(t, []int{0}, leaves[0].Bits)

	c1, ok := leaves[1].Op.(*Classical)
	require.True(t, ok)
	assert.Equal(t, KindMeasure, c1.Base().Kind())
	assert.Equal(t, []int{0, 1}, leaves[1].Bits)
	assert.True(t, c1.Matches([]bool{true}))
	assert.False(t, c1.Matches([]bool{false}))
}

func TestFlattenScopes(t *testing.T) {
	op := WithPrefix("outer.", WithPrefix("inner.", Rx(Named("theta"))))
	leaves, err := Flatten(op)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, "outer.inner.", leaves[0].Scope)
	g := leaves[0].Op.(*Gate)
	assert.Equal(t, "outer.inner.theta", g.Params()[0].Name)

	// the same sub-circuit under two prefixes binds two distinct parameters
	sub := Must(NewSequence([]string{"q"}, nil, []Step{On(Phase(Named("phi")), "q")}))
	parent := Must(NewSequence([]string{"q"}, nil, []Step{
		On(WithPrefix("a.", sub), "q"),
		On(WithPrefix("b.", sub), "q"),
	}))
	got := view(t, parent)
	assert.Equal(t, "Phase(a.phi)", got[0].name)
	assert.Equal(t, "Phase(b.phi)", got[1].name)
}

// adder-like sub-circuit that borrows one ancilla and restores it
func borrowing(t *testing.T) *Sequence {
	t.Helper()
	seq, err := NewSequence([]string{"a", "b", "t"}, nil, []Step{
		On(Toffoli(), "a", "b", "anc"),
		On(CNOT(), "anc", "t"),
		On(Toffoli(), "a", "b", "anc"),
	}, WithAncillas("anc"))
	require.NoError(t, err)
	return seq
}

func TestAncillaAllocation(t *testing.T) {
	sub := borrowing(t)
	parent := Must(NewSequence(Wires(3), nil, []Step{
		On(sub, "0", "1", "2"),
		On(sub, "2", "1", "0"),
		On(WithPrefix("p.", sub), "0", "1", "2"),
		On(WithPrefix("q.", sub), "0", "1", "2"),
	}))

	assert.Equal(t, 4, AncillaCount(parent))

	labels, err := AncillaLabels(parent)
	require.NoError(t, err)
	require.Len(t, labels, 4)
	seen := make(map[string]bool)
	for _, l := range labels {
		assert.False(t, seen[l], "label %q allocated twice", l)
		seen[l] = true
	}
	assert.Contains(t, labels, "p.anc@0.2")
	assert.Contains(t, labels, "q.anc@0.3")

	// every instance writes to its own ancilla wire
	leaves, err := Flatten(parent)
	require.NoError(t, err)
	require.Len(t, leaves, 12)
	for i := range 4 {
		anc := leaves[3*i].Qubits[2]
		assert.Equal(t, 3+i, anc)
		assert.Equal(t, anc, leaves[3*i+1].Qubits[0])
		assert.Equal(t, anc, leaves[3*i+2].Qubits[2])
	}
}

func TestWalkErrors(t *testing.T) {
	sub := borrowing(t)
	for _, err := range Walk(sub, []int{0, 1, 2}, nil, nil) {
		assert.Error(t, err, "empty ancilla pool")
	}

	var se *StructuralError
	for _, err := range Walk(H(), []int{0, 1}, nil, nil) {
		require.ErrorAs(t, err, &se)
		assert.Equal(t, WireCountMismatch, se.Kind)
	}
}

func TestQFTExpansion(t *testing.T) {
	seq, err := NewQFT(3, "f.").Expand()
	require.NoError(t, err)
	names := make([]string, 0, seq.Len())
	for _, st := range seq.Steps() {
		names = append(names, st.Op.Name())
	}
	assert.Equal(t, []string{
		"Hadamard",
		"QuantumControl([1], Phase(f.Ph1))",
		"QuantumControl([1], Phase(f.Ph2))",
		"Hadamard",
		"QuantumControl([1], Phase(f.Ph1))",
		"Hadamard",
		"QubitReversal(3)",
	}, names)
	assert.Equal(t, []string{"1", "0"}, seq.Steps()[1].Qubits)
	assert.Equal(t, []string{"2", "0"}, seq.Steps()[2].Qubits)

	inv, err := NewInverseQFT(3, "f.").Expand()
	require.NoError(t, err)
	assert.Equal(t, "QubitReversal(3)", inv.Steps()[0].Op.Name())
	assert.Equal(t, "QuantumControl([1], InversePhase(f.Ph1))", inv.Steps()[1].Op.Name())

	rev := view(t, NewQubitReversal(5))
	require.Len(t, rev, 2)
	assert.Equal(t, []int{0, 4}, rev[0].qubits)
	assert.Equal(t, []int{1, 3}, rev[1].qubits)
}

func TestPCCMExpansion(t *testing.T) {
	p := NewPCCM("theta", "pre.")
	got := view(t, p)
	require.Len(t, got, 6)
	assert.Equal(t, "Rx(pre.RX(π/2))", got[0].name)
	assert.Equal(t, "QuantumControl([1], Rx(pre.RX(theta)))", got[2].name)
	assert.Equal(t, []int{1, 0}, got[3].qubits)
	assert.Equal(t, "Ry(pre.RY(-π/2))", got[5].name)

	inv, err := p.Inverse()
	require.NoError(t, err)
	assert.Equal(t, `InversePCCM("theta", "pre.")`, inv.Name())
	got = view(t, inv)
	assert.Equal(t, "InverseRy(pre.RY(-π/2))", got[0].name)
	back, err := inv.Inverse()
	require.NoError(t, err)
	assert.Same(t, p, back)
}
