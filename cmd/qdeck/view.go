package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/render"
	"github.com/HershLalwani/qdeck/sim"
)

const (
	maxStateRows = 16 // basis states listed in the state panel
	barWidth     = 20
	approxCellW  = 9 // used to decide how many columns fit
)

// backendItem is one entry of the backend picker.
type backendItem struct {
	kind sim.Kind
	desc string
}

var backendMenu = []backendItem{
	{sim.UnitaryNumeric, "accumulated matrix"},
	{sim.UnitarySymbolic, "exact matrix"},
	{sim.StateVector, "sampled measurements"},
	{sim.DensityNumeric, "mixed state"},
	{sim.DensitySymbolic, "exact mixed state"},
}

// viewer steps through a circuit column by column and shows the simulator
// state after each one.
type viewer struct {
	sess    *session
	path    string
	op      circuit.Operation
	diagram *render.Diagram
	styles  render.Styles

	kind sim.Kind
	sim  *sim.Simulator
	seed uint64
	step int   // columns applied so far
	err  error // why the last column could not be applied

	width, height int
	keys          keyMap
	help          help.Model

	menuOpen bool
	menuItem int
}

func newViewer(sess *session, path string, op circuit.Operation) (viewer, error) {
	d, err := render.New(op)
	if err != nil {
		return viewer{}, err
	}
	m := viewer{
		sess:    sess,
		path:    path,
		op:      op,
		diagram: d,
		styles:  render.DefaultStyles(),
		kind:    sess.cfg.Kind(),
		seed:    rand.Uint64(),
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
	if sess.cfg.Seed != nil {
		m.seed = *sess.cfg.Seed
	}
	if err := m.replay(0); err != nil {
		return viewer{}, err
	}
	return m, nil
}

// replay rebuilds the simulator and applies the first n columns. The seed
// is fixed, so stepping back and forth reproduces the same samples. A
// column that fails stops the replay before it and is reported in m.err.
func (m *viewer) replay(n int) error {
	opts := []sim.Option{sim.WithSeed(m.seed)}
	if m.kind == sim.StateVector {
		opts = append(opts, sim.WithPolicy(sim.Collapse))
	}
	s, err := m.sess.simulator(m.kind, m.op, opts...)
	if err != nil {
		return err
	}
	m.sim, m.step, m.err = s, 0, nil
	for m.step < n && m.err == nil {
		m.advance()
	}
	return nil
}

// advance applies the next column.
func (m *viewer) advance() {
	if m.step >= m.diagram.Columns() {
		return
	}
	for _, leaf := range m.diagram.Column(m.step) {
		if err := m.sim.Apply(leaf.Op, leaf.Qubits, leaf.Bits); err != nil {
			m.err = errors.Wrapf(err, "column %d", m.step)
			m.sess.logger.Debug("column failed", zap.Int("column", m.step), zap.Error(err))
			return
		}
	}
	m.step++
}

// rebuild replays to n and keeps any construction error for display.
func (m *viewer) rebuild(n int) {
	if err := m.replay(n); err != nil {
		m.err = err
	}
}

func (m viewer) Init() tea.Cmd {
	return nil
}

func (m viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.menuOpen {
			return m.updateMenu(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if m.err == nil {
				m.advance()
			}
		case key.Matches(msg, m.keys.Prev):
			if m.step > 0 {
				m.rebuild(m.step - 1)
			}
		case key.Matches(msg, m.keys.First):
			m.rebuild(0)
		case key.Matches(msg, m.keys.Last):
			for m.err == nil && m.step < m.diagram.Columns() {
				m.advance()
			}
		case key.Matches(msg, m.keys.Reseed):
			m.seed = rand.Uint64()
			m.rebuild(m.step)
		case key.Matches(msg, m.keys.Backend):
			m.menuOpen = true
			m.menuItem = 0
			for i, it := range backendMenu {
				if it.kind == m.kind {
					m.menuItem = i
				}
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m viewer) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.menuOpen = false
	case key.Matches(msg, m.keys.Up):
		if m.menuItem > 0 {
			m.menuItem--
		}
	case key.Matches(msg, m.keys.Down):
		if m.menuItem < len(backendMenu)-1 {
			m.menuItem++
		}
	case key.Matches(msg, m.keys.Select):
		m.menuOpen = false
		if k := backendMenu[m.menuItem].kind; k != m.kind {
			m.kind = k
			m.rebuild(m.step)
		}
	}
	return m, nil
}

// View renders the UI.
func (m viewer) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	frame := lipgloss.JoinVertical(lipgloss.Left,
		m.renderCircuitPanel(m.width-2),
		m.renderStatePanel(m.width-2),
		m.help.View(m.keys),
	)
	if m.menuOpen {
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	}
	return frame
}

func (m viewer) renderCircuitPanel(width int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", titleStyle.Render(m.path), dimStyle.Render(fmt.Sprintf("%s  seed %d", m.kind, m.seed)))

	visible := max((width-16)/approxCellW, 1)
	current := max(m.step-1, 0)
	from := max(current-visible+1, 0)
	if from > 0 {
		fmt.Fprintf(&sb, "  ◀ showing columns %d–%d\n", from, min(from+visible, m.diagram.Columns())-1)
	}
	sb.WriteString(m.diagram.Render(
		render.WithStyles(m.styles),
		render.WithHighlight(m.step-1),
		render.WithRange(from, from+visible),
	))
	return circuitStyle.Width(width).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m viewer) renderStatePanel(width int) string {
	return stateStyle.Width(width).Render(strings.TrimRight(m.stateText(), "\n"))
}

// stateText describes the simulator after the applied columns.
func (m viewer) stateText() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("After %d of %d columns", m.step, m.diagram.Columns())))
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}
	if m.sim == nil {
		return sb.String()
	}

	if !m.kind.Measures() {
		u, err := m.sim.Unitary()
		if err != nil {
			sb.WriteString(errorStyle.Render(err.Error()))
			return sb.String()
		}
		if u.Rows() > 4 {
			fmt.Fprintf(&sb, "unitary: %d×%d matrix\n", u.Rows(), u.Cols())
			return sb.String()
		}
		sb.WriteString(u.String())
		return sb.String()
	}

	n := m.op.NumQubits()
	probs, err := m.sim.Probabilities(span(0, n))
	if err != nil {
		sb.WriteString(errorStyle.Render(err.Error()))
		return sb.String()
	}
	rows := 0
	for i, p := range probs {
		if p < probabilityFloor {
			continue
		}
		if rows == maxStateRows {
			sb.WriteString(dimStyle.Render("  …"))
			sb.WriteString("\n")
			break
		}
		filled := int(p*barWidth + 0.5)
		fmt.Fprintf(&sb, "  |%s⟩ %s%s %.4f\n", basisLabel(i, n),
			barStyle.Render(strings.Repeat("█", filled)),
			dimStyle.Render(strings.Repeat("·", barWidth-filled)), p)
		rows++
	}

	if m.sim.Bits() > 0 {
		outcomes, err := m.sim.Outcomes()
		if err != nil {
			sb.WriteString(errorStyle.Render(err.Error()))
			return sb.String()
		}
		for _, o := range outcomes {
			fmt.Fprintf(&sb, "  %s %s  %.4f\n", activeStyle.Render("c ="), bitString(o.Bits), o.Probability)
		}
	}
	return sb.String()
}

// renderMenu renders the floating backend picker.
func (m viewer) renderMenu() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Backend"))
	sb.WriteString("\n")
	for i, it := range backendMenu {
		name := fmt.Sprintf("%-18s", it.kind)
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ " + name))
		} else {
			sb.WriteString("   " + menuNormalStyle.Render(name))
		}
		sb.WriteString(dimStyle.Render(it.desc))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ⏎ Ok  Esc ✕"))
	return menuBorderStyle.Render(sb.String())
}

func viewCircuit(cmd *cobra.Command, args []string) error {
	sess, err := newSession(false)
	if err != nil {
		return err
	}
	defer sess.close()
	op, err := sess.load(args[0])
	if err != nil {
		return err
	}
	m, err := newViewer(sess, args[0], op)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
