package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bellQASM = `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
bit[2] c;
h q[0];
cx q[0], q[1];
c[0] = measure q[0];
c[1] = measure q[1];
`

const bellUnitaryQASM = `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
h q[0];
cx q[0], q[1];
`

// resetFlags restores every command flag to its default before and after
// the test.
func resetFlags(t *testing.T) {
	t.Helper()
	set := func() {
		configPath, logLevel, backendName, policyName = "", "", "", ""
		seed = -1
		decomposeFirst = false
		maxControls, ancillas = 0, -1
		shots = 1
		showMetrics, plain, asDiagram = false, false, false
		values = nil
		tolerance = 1e-9
	}
	set()
	t.Cleanup(set)
}

func writeCircuit(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circuit.qasm")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func execute(fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	err := fn(cmd, args)
	return buf.String(), err
}

func TestRunEnumeratedBell(t *testing.T) {
	resetFlags(t)
	backendName, policyName = "density", "enumerate"

	out, err := execute(runCircuit, writeCircuit(t, bellQASM))
	require.NoError(t, err)
	assert.Contains(t, out, "backend: density (enumerate)")
	assert.Contains(t, out, "  00  0.500000\n")
	assert.Contains(t, out, "  11  0.500000\n")
	assert.Contains(t, out, "  |00⟩  0.500000\n")
	assert.Contains(t, out, "  |11⟩  0.500000\n")
	assert.NotContains(t, out, "|01⟩")
}

func TestRunShotsAreReproducible(t *testing.T) {
	resetFlags(t)
	seed = 7
	shots = 200
	path := writeCircuit(t, bellQASM)

	first, err := execute(runCircuit, path)
	require.NoError(t, err)
	second, err := execute(runCircuit, path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Contains(t, first, "counts:")
	assert.NotContains(t, first, "  01  ")
	assert.NotContains(t, first, "  10  ")
}

func TestRunZeroShots(t *testing.T) {
	resetFlags(t)
	shots = 0
	_, err := execute(runCircuit, writeCircuit(t, bellQASM))
	assert.Error(t, err)
}

func TestRunUnitary(t *testing.T) {
	resetFlags(t)
	backendName = "unitary-symbolic"

	out, err := execute(runCircuit, writeCircuit(t, bellUnitaryQASM))
	require.NoError(t, err)
	assert.Contains(t, out, "unitary:\n")
	assert.Equal(t, 4, strings.Count(out, "["))

	// measurements have no unitary
	_, err = execute(runCircuit, writeCircuit(t, bellQASM))
	assert.Error(t, err)
}

func TestRunBindingsAndMetrics(t *testing.T) {
	resetFlags(t)
	backendName = "density"
	values = []string{"theta=pi"}
	showMetrics = true

	out, err := execute(runCircuit, writeCircuit(t, `OPENQASM 3.0;
include "stdgates.inc";
input float[64] theta;
qubit[1] q;
bit[1] c;
rx(theta) q[0];
c[0] = measure q[0];
`))
	require.NoError(t, err)
	assert.Contains(t, out, "  |1⟩  1.000000\n")
	assert.Contains(t, out, "metrics:")
	assert.Contains(t, out, "qdeck_sim_leaves_applied_total")
	assert.Contains(t, out, "qdeck_sim_measurements_total")
}

func TestParseValues(t *testing.T) {
	got, err := parseValues([]string{"a=pi/2", " b = 0.5"})
	require.NoError(t, err)
	assert.InDelta(t, 1.5707963, got["a"], 1e-6)
	assert.InDelta(t, 0.5, got["b"], 1e-12)

	for _, bad := range []string{"a", "=1", "a=banana"} {
		_, err := parseValues([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestDrawAndExport(t *testing.T) {
	resetFlags(t)
	plain = true
	path := writeCircuit(t, bellQASM)

	out, err := execute(drawCircuit, path)
	require.NoError(t, err)
	assert.Contains(t, out, "┤ H ├")
	assert.Contains(t, out, "⊕")
	assert.Contains(t, out, "╩")

	out, err = execute(exportCircuit, path)
	require.NoError(t, err)
	assert.Contains(t, out, "OPENQASM 3.0;\n")
	assert.Contains(t, out, "cx q[0], q[1];\n")
	assert.Contains(t, out, "c[1] = measure q[1];\n")
}

func TestDecomposeCommand(t *testing.T) {
	resetFlags(t)
	ancillas = 2
	path := writeCircuit(t, `OPENQASM 3.0;
include "stdgates.inc";
qubit[5] q;
ctrl(4) @ x q[0], q[1], q[2], q[3], q[4];
`)

	out, err := execute(decomposeCircuit, path)
	require.NoError(t, err)
	assert.Contains(t, out, "ccx ")
	assert.Contains(t, out, "// ancillas:")
	assert.NotContains(t, out, "ctrl @")

	asDiagram = true
	out, err = execute(decomposeCircuit, path)
	require.NoError(t, err)
	assert.Contains(t, out, "⊕")

	// no ancillas and a control limit of one leaves no construction for
	// a multi-qubit target
	asDiagram = false
	ancillas, maxControls = 0, 1
	_, err = execute(decomposeCircuit, writeCircuit(t, `OPENQASM 3.0;
include "stdgates.inc";
qubit[4] q;
ctrl(2) @ swap q[0], q[1], q[2], q[3];
`))
	assert.Error(t, err)
}

func TestCompareBackends(t *testing.T) {
	resetFlags(t)

	out, err := execute(compareBackends, writeCircuit(t, bellUnitaryQASM))
	require.NoError(t, err)
	assert.Contains(t, out, "numeric:  unitary\n")
	assert.Contains(t, out, "match\n")

	out, err = execute(compareBackends, writeCircuit(t, bellQASM))
	require.NoError(t, err)
	assert.Contains(t, out, "numeric:  density\n")
	assert.Contains(t, out, "match\n")

	// the symbolic backend has no exact form of an arbitrary angle
	_, err = execute(compareBackends, writeCircuit(t, `OPENQASM 3.0;
include "stdgates.inc";
qubit[1] q;
rx(0.3) q[0];
`))
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "qdeck.yaml")
	out, err := execute(initConfig, path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	configPath = path
	backendName = "density-symbolic"
	out, err = execute(runCircuit, writeCircuit(t, bellQASM))
	require.NoError(t, err)
	assert.Contains(t, out, "backend: density-symbolic (enumerate)")
	assert.Contains(t, out, "  00  1/2\n")

	backendName = "quantum"
	_, err = execute(runCircuit, writeCircuit(t, bellQASM))
	assert.Error(t, err)
}
