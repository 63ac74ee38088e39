package render

import "github.com/charmbracelet/lipgloss"

// Layout constants
const (
	minCellW = 7 // narrowest column, wide enough for a one-letter box
	boxPad   = 4 // ┤ + space + label + space + ├
)

// Styles colours the parts of a diagram. The zero value renders plain text.
type Styles struct {
	Label     lipgloss.Style // qubit labels
	BitLabel  lipgloss.Style // classical bit labels
	Gate      lipgloss.Style // gate boxes and symbols
	Active    lipgloss.Style // highlighted column
	Dim       lipgloss.Style // step numbers
	BitWire   lipgloss.Style // classical wires
	Connector lipgloss.Style // measurement and condition connectors
}

// DefaultStyles is the terminal palette.
func DefaultStyles() Styles {
	return Styles{
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")),
		BitLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")),
		Gate: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73daca")),
		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64")),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		BitWire: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		Connector: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true),
	}
}
