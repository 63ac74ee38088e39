package render

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qdeck/circuit"
)

func draw(t *testing.T, qubits, bits []string, steps []circuit.Step, opts ...Option) []string {
	t.Helper()
	seq, err := circuit.NewSequence(qubits, bits, steps)
	require.NoError(t, err)
	out, err := Draw(seq, opts...)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}

func TestSingleGate(t *testing.T) {
	out, err := Draw(circuit.Must(circuit.NewSequence([]string{"0"}, nil, []circuit.Step{
		circuit.On(circuit.H(), "0"),
	})))
	require.NoError(t, err)
	want := "      0\n" +
		"    ┌───┐\n" +
		"0 ──┤ H ├─\n" +
		"    └───┘\n"
	assert.Equal(t, want, out)
}

func TestControlledGate(t *testing.T) {
	lines := draw(t, []string{"a", "b"}, nil, []circuit.Step{
		circuit.On(circuit.CNOT(), "a", "b"),
	})
	assert.Equal(t, []string{
		"      0",
		"",
		"a ────●───",
		"      │",
		"      │",
		"b ────⊕───",
		"",
	}, lines)
}

func TestPacking(t *testing.T) {
	seq := circuit.Must(circuit.NewSequence(circuit.Wires(3), nil, []circuit.Step{
		circuit.On(circuit.H(), "0"),
		circuit.On(circuit.H(), "1"),
		circuit.On(circuit.CNOT(), "0", "1"),
		circuit.On(circuit.X(), "2"),
	}))
	d, err := New(seq)
	require.NoError(t, err)
	require.Equal(t, 2, d.Columns())

	names := func(col int) []string {
		var out []string
		for _, l := range d.Column(col) {
			out = append(out, l.Op.Name())
		}
		return out
	}
	assert.Equal(t, []string{"Hadamard", "Hadamard", "PauliX"}, names(0))
	assert.Equal(t, []string{"QuantumControl([1], PauliX)"}, names(1))

	// a control spanning an idle wire blocks it
	seq = circuit.Must(circuit.NewSequence(circuit.Wires(3), nil, []circuit.Step{
		circuit.On(circuit.CNOT(), "0", "2"),
		circuit.On(circuit.H(), "1"),
	}))
	d, err = New(seq)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Columns())
	lines := strings.Split(d.Render(), "\n")
	assert.Contains(t, lines[5], "┼")
}

func TestMeasurementAndCondition(t *testing.T) {
	guarded, err := circuit.NewClassical(circuit.X(), 1)
	require.NoError(t, err)
	lines := draw(t, []string{"q"}, []string{"m"}, []circuit.Step{
		{Op: circuit.Measure(1), Qubits: []string{"q"}, Bits: []string{"m"}},
		{Op: guarded, Qubits: []string{"q"}, Bits: []string{"m"}},
	}, WithoutStepNumbers())

	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "┤ M ├")
	assert.Contains(t, lines[2], "└─╥─┘")
	assert.Equal(t, "m ════╩══════●═══", lines[4])
	assert.Equal(t, 2, strings.Count(lines[3], "║"))
}

func TestDoubleConnectorCrossesWires(t *testing.T) {
	lines := draw(t, []string{"a", "b"}, []string{"x", "y"}, []circuit.Step{
		{Op: circuit.Measure(1), Qubits: []string{"a"}, Bits: []string{"y"}},
	})
	assert.Contains(t, lines[5], "╫")
	assert.Contains(t, lines[8], "╬")
	assert.Contains(t, lines[9], "╩")
}

func TestLabel(t *testing.T) {
	tests := []struct {
		gate *circuit.Gate
		want string
	}{
		{circuit.H(), "H"},
		{circuit.Sdg(), "S†"},
		{circuit.SX(), "√X"},
		{circuit.Rx(circuit.Angle(math.Pi / 2)), "Rx(pi/2)"},
		{circuit.Rzz(circuit.Named("t")), "Rzz(t)"},
		{circuit.Custom("U", 2), "U"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.gate))
	}
}

func TestRangeAndAncillas(t *testing.T) {
	inner := circuit.Must(circuit.NewSequence([]string{"a"}, nil, []circuit.Step{
		circuit.On(circuit.CNOT(), "a", "anc"),
		circuit.On(circuit.T(), "anc"),
		circuit.On(circuit.CNOT(), "a", "anc"),
	}, circuit.WithAncillas("anc")))

	d, err := New(inner)
	require.NoError(t, err)
	assert.Len(t, d.Qubits(), 2)
	assert.Equal(t, 3, d.Columns())

	lines := strings.Split(d.Render(WithRange(1, 2)), "\n")
	assert.Equal(t, "1", strings.TrimSpace(lines[0]))
	assert.Contains(t, strings.Join(lines, "\n"), "┤ T ├")
	assert.NotContains(t, strings.Join(lines, "\n"), "⊕")
}
