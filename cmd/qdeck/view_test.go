package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qdeck/qasm"
	"github.com/HershLalwani/qdeck/sim"
)

func newTestViewer(t *testing.T, src string) viewer {
	t.Helper()
	resetFlags(t)
	seed = 3
	sess, err := newSession(false)
	require.NoError(t, err)
	op, err := qasm.Parse(src)
	require.NoError(t, err)
	m, err := newViewer(sess, "bell.qasm", op)
	require.NoError(t, err)
	return send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func send(m viewer, msgs ...tea.Msg) viewer {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(viewer)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewerSteps(t *testing.T) {
	m := newTestViewer(t, bellUnitaryQASM)
	require.Equal(t, 2, m.diagram.Columns())
	assert.Equal(t, 0, m.step)
	assert.Contains(t, m.stateText(), "|00⟩")
	assert.NotContains(t, m.stateText(), "|11⟩")

	m = send(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.step)
	text := m.stateText()
	assert.Contains(t, text, "|00⟩")
	assert.Contains(t, text, "|11⟩")
	assert.Contains(t, text, "0.5000")

	// stepping past the end is a no-op
	m = send(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.step)

	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.step)
	assert.NotContains(t, m.stateText(), "|11⟩")

	m = send(m, runes("G"))
	assert.Equal(t, 2, m.step)
	m = send(m, runes("g"))
	assert.Equal(t, 0, m.step)

	assert.Contains(t, m.View(), "bell.qasm")
}

func TestViewerBackendMenu(t *testing.T) {
	m := newTestViewer(t, bellQASM)
	m = send(m, runes("G"))
	require.NoError(t, m.err)
	assert.Equal(t, 4, m.step)

	m = send(m, runes("b"))
	require.True(t, m.menuOpen)
	assert.Equal(t, 2, m.menuItem)
	assert.Contains(t, m.View(), "Backend")

	// pick the density backend; the replay keeps the position
	m = send(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.menuOpen)
	assert.Equal(t, sim.DensityNumeric, m.kind)
	assert.Equal(t, 4, m.step)
	assert.Contains(t, m.stateText(), "c =")

	// the unitary backend stops before the measurement column
	m = send(m, runes("b"), tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp},
		tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, sim.UnitaryNumeric, m.kind)
	assert.Equal(t, 2, m.step)
	require.Error(t, m.err)
	assert.Contains(t, m.stateText(), "column 2")

	// escape closes the menu without changes
	m = send(m, runes("b"), tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.menuOpen)
	assert.Equal(t, sim.UnitaryNumeric, m.kind)
}

func TestViewerReplayIsDeterministic(t *testing.T) {
	m := newTestViewer(t, bellQASM)
	m = send(m, runes("G"))
	first := m.stateText()
	m = send(m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, first, m.stateText())
}

func TestOverlayAt(t *testing.T) {
	assert.Equal(t, "abcdef\nghXYkl", overlayAt("abcdef\nghijkl", "XY", 2, 1))
	assert.Equal(t, "ab  X", overlayAt("ab", "X", 4, 0))
	// rows past the background are dropped
	assert.Equal(t, "Xb", overlayAt("ab", "X\nY", 0, 0))
	// escape sequences outside the overlay survive
	assert.Equal(t, "\x1b[1maZc\x1b[0mdef", overlayAt("\x1b[1mabc\x1b[0mdef", "Z", 1, 0))
}
