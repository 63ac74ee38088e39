package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HershLalwani/qdeck/circuit"
)

type qkind int

const (
	qWire qkind = iota
	qBox
	qDot
	qOpenDot
	qTarget
	qSwap
	qBarrier
	qPass   // single connector crossing the wire
	qDouble // double connector crossing the wire
)

type qcell struct {
	kind  qkind
	label string
	up    bool // single connector leaves the top
	down  bool // single connector leaves the bottom
	dbl   bool // double connector leaves the bottom
}

type ckind int

const (
	cWire ckind = iota
	cLand
	cDot
	cOpenDot
	cPass
)

// Option configures Render.
type Option func(*options)

type options struct {
	styles    Styles
	from, to  int
	highlight int
	numbers   bool
}

// WithStyles sets the palette. Without it output is plain text.
func WithStyles(s Styles) Option { return func(o *options) { o.styles = s } }

// WithRange renders columns [from, to) only.
func WithRange(from, to int) Option {
	return func(o *options) { o.from, o.to = from, to }
}

// WithHighlight draws column i in the active style.
func WithHighlight(i int) Option { return func(o *options) { o.highlight = i } }

// WithoutStepNumbers drops the header line of column numbers.
func WithoutStepNumbers() Option { return func(o *options) { o.numbers = false } }

// Render draws the diagram: a header of column numbers, three lines per
// qubit, then one line per classical bit.
func (d *Diagram) Render(opts ...Option) string {
	o := options{to: len(d.columns), highlight: -1, numbers: true}
	for _, opt := range opts {
		opt(&o)
	}
	o.from = max(o.from, 0)
	o.to = min(o.to, len(d.columns))
	st := o.styles

	labelW := 0
	for _, l := range d.qubits {
		labelW = max(labelW, lipgloss.Width(l))
	}
	for _, l := range d.bits {
		labelW = max(labelW, lipgloss.Width(l))
	}
	indent := strings.Repeat(" ", labelW+2)

	nq, nb := len(d.qubits), len(d.bits)
	qlines := make([][3]strings.Builder, nq)
	clines := make([]strings.Builder, nb)
	var header, sep strings.Builder
	header.WriteString(indent)
	sep.WriteString(indent)
	for q, l := range d.qubits {
		qlines[q][0].WriteString(indent)
		qlines[q][1].WriteString(st.Label.Render(padRight(l, labelW)) + " ─")
		qlines[q][2].WriteString(indent)
	}
	for b, l := range d.bits {
		clines[b].WriteString(st.BitLabel.Render(padRight(l, labelW)) + " " + st.BitWire.Render("═"))
	}

	for col := o.from; col < o.to; col++ {
		qc, cc, crossing := d.cells(col)
		w := minCellW
		for _, c := range qc {
			if c.kind == qBox {
				w = max(w, lipgloss.Width(c.label)+boxPad+2)
			}
		}
		if w%2 == 0 {
			w++
		}

		gate := st.Gate
		num := st.Dim
		if col == o.highlight {
			gate, num = st.Active, st.Active
		}
		header.WriteString(num.Render(padCenter(fmt.Sprint(col), w)))
		for q, c := range qc {
			top, mid, bot := c.lines(w, gate, st.Connector)
			qlines[q][0].WriteString(top)
			qlines[q][1].WriteString(mid)
			qlines[q][2].WriteString(bot)
		}
		if crossing {
			sep.WriteString(centered(w, st.Connector.Render("║")))
		} else {
			sep.WriteString(strings.Repeat(" ", w))
		}
		for b, c := range cc {
			clines[b].WriteString(c.line(w, gate, st))
		}
	}

	var lines []string
	if o.numbers {
		lines = append(lines, header.String())
	}
	for q := range qlines {
		for i := range 3 {
			lines = append(lines, qlines[q][i].String())
		}
	}
	if nb > 0 {
		lines = append(lines, sep.String())
		for b := range clines {
			lines = append(lines, clines[b].String())
		}
	}
	var out strings.Builder
	for _, l := range lines {
		out.WriteString(strings.TrimRight(l, " "))
		out.WriteByte('\n')
	}
	return out.String()
}

// cells describes every row of one column. crossing reports a double
// connector between the quantum and classical rows.
func (d *Diagram) cells(col int) (qc []qcell, cc []ckind, crossing bool) {
	qc = make([]qcell, len(d.qubits))
	cc = make([]ckind, len(d.bits))

	// double connector from qubit row q down to bit row b
	double := func(q, b int) {
		qc[q].dbl = true
		for r := q + 1; r < len(qc); r++ {
			if qc[r].kind == qWire || qc[r].kind == qPass {
				qc[r].kind = qDouble
			}
		}
		crossing = true
		for r := range b {
			if cc[r] == cWire {
				cc[r] = cPass
			}
		}
	}

	for _, idx := range d.columns[col] {
		leaf := d.leaves[idx]
		op, bits := leaf.Op, leaf.Bits
		var cond []bool
		if cl, ok := op.(*circuit.Classical); ok {
			cond = cl.Values()
			op = cl.Base()
			bits = bits[len(cond):]
		}

		switch op.Kind() {
		case circuit.KindBarrier:
			for _, q := range leaf.Qubits {
				qc[q].kind = qBarrier
			}
			continue
		case circuit.KindMeasure:
			for j, q := range leaf.Qubits {
				qc[q].kind, qc[q].label = qBox, "M"
				cc[bits[j]] = cLand
			}
			for j, q := range leaf.Qubits {
				double(q, bits[j])
			}
		case circuit.KindReset:
			for _, q := range leaf.Qubits {
				qc[q].kind, qc[q].label = qBox, "|0⟩"
			}
		default:
			gateCells(qc, op, leaf.Qubits)
		}

		if len(cond) > 0 {
			lowest := leaf.Qubits[0]
			for _, q := range leaf.Qubits {
				lowest = max(lowest, q)
			}
			last := 0
			for i, b := range leaf.Bits[:len(cond)] {
				cc[b] = cOpenDot
				if cond[i] {
					cc[b] = cDot
				}
				last = max(last, b)
			}
			double(lowest, last)
		}
	}
	return qc, cc, crossing
}

// gateCells fills the cells of a gate or controlled gate and the single
// connector joining them.
func gateCells(qc []qcell, op circuit.Operation, qubits []int) {
	var pattern []bool
	if c, ok := op.(*circuit.Controlled); ok {
		pattern = c.Pattern()
		op = c.Base()
	}
	g, ok := op.(*circuit.Gate)
	if !ok {
		for _, q := range qubits {
			qc[q].kind, qc[q].label = qBox, op.Name()
		}
		return
	}
	for i, on := range pattern {
		qc[qubits[i]].kind = qOpenDot
		if on {
			qc[qubits[i]].kind = qDot
		}
	}
	targets := qubits[len(pattern):]
	for _, q := range targets {
		switch {
		case g.Mnemonic() == "x" && len(pattern) > 0:
			qc[q].kind = qTarget
		case g.Mnemonic() == "swap":
			qc[q].kind = qSwap
		default:
			qc[q].kind, qc[q].label = qBox, Label(g)
		}
	}

	if len(qubits) < 2 {
		return
	}
	lo, hi := qubits[0], qubits[0]
	member := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		lo, hi = min(lo, q), max(hi, q)
		member[q] = true
	}
	for r := lo; r <= hi; r++ {
		if !member[r] {
			if qc[r].kind == qWire {
				qc[r].kind = qPass
			}
			continue
		}
		qc[r].up = r > lo
		qc[r].down = r < hi
	}
}

// Label is the short text drawn inside a gate box.
func Label(g *circuit.Gate) string {
	var name string
	switch m := g.Mnemonic(); m {
	case "sx":
		name = "√X"
	case "id":
		name = "I"
	case "custom":
		name = g.CustomName()
	case "permute":
		name = "Perm"
	case "h", "x", "y", "z", "s", "t", "p":
		name = strings.ToUpper(m)
	default:
		name = strings.ToUpper(m[:1]) + m[1:]
	}
	if g.Dagger() {
		name += "†"
	}
	if ps := g.Params(); len(ps) > 0 {
		args := make([]string, len(ps))
		for i, p := range ps {
			args[i] = p.String()
		}
		name += "(" + strings.Join(args, ",") + ")"
	}
	return name
}

// lines returns the three text lines of a qubit cell of width w.
func (c qcell) lines(w int, gate, conn lipgloss.Style) (top, mid, bot string) {
	half := w / 2
	blank := strings.Repeat(" ", w)
	vert := centered(w, "│")
	dvert := centered(w, conn.Render("║"))
	onWire := func(sym string) string {
		return strings.Repeat("─", half) + sym + strings.Repeat("─", w-half-1)
	}

	top, bot = blank, blank
	if c.up {
		top = vert
	}
	if c.down {
		bot = vert
	}
	if c.dbl {
		bot = dvert
	}

	switch c.kind {
	case qWire:
		mid = strings.Repeat("─", w)
	case qPass:
		top, mid, bot = vert, onWire("┼"), vert
	case qDouble:
		top, mid, bot = dvert, onWire(conn.Render("╫")), dvert
	case qBarrier:
		top, mid, bot = vert, onWire("│"), vert
	case qDot:
		mid = onWire(gate.Render("●"))
	case qOpenDot:
		mid = onWire(gate.Render("○"))
	case qTarget:
		mid = onWire(gate.Render("⊕"))
	case qSwap:
		mid = onWire(gate.Render("×"))
	case qBox:
		lw := lipgloss.Width(c.label)
		bw := lw + boxPad
		margin := (w - bw) / 2
		right := w - margin - bw
		// border position under the column centre
		at := half - margin - 1
		border := func(join string) string {
			return strings.Repeat("─", at) + join + strings.Repeat("─", bw-3-at)
		}
		topB := strings.Repeat("─", bw-2)
		if c.up {
			topB = border("┴")
		}
		botB := strings.Repeat("─", bw-2)
		switch {
		case c.dbl:
			botB = border("╥")
		case c.down:
			botB = border("┬")
		}
		top = strings.Repeat(" ", margin) + gate.Render("┌"+topB+"┐") + strings.Repeat(" ", right)
		mid = strings.Repeat("─", margin) + gate.Render("┤ "+c.label+" ├") + strings.Repeat("─", right)
		bot = strings.Repeat(" ", margin) + gate.Render("└"+botB+"┘") + strings.Repeat(" ", right)
	}
	return top, mid, bot
}

// line returns the single text line of a classical bit cell.
func (c ckind) line(w int, gate lipgloss.Style, st Styles) string {
	half := w / 2
	left := st.BitWire.Render(strings.Repeat("═", half))
	right := st.BitWire.Render(strings.Repeat("═", w-half-1))
	switch c {
	case cLand:
		return left + st.Connector.Render("╩") + right
	case cDot:
		return left + gate.Render("●") + right
	case cOpenDot:
		return left + gate.Render("○") + right
	case cPass:
		return left + st.Connector.Render("╬") + right
	}
	return st.BitWire.Render(strings.Repeat("═", w))
}

func centered(w int, s string) string {
	half := w / 2
	return strings.Repeat(" ", half) + s + strings.Repeat(" ", w-half-1)
}

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

func padRight(s string, width int) string {
	return s + strings.Repeat(" ", max(width-lipgloss.Width(s), 0))
}
