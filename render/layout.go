// Package render draws circuits as text diagrams. Leaves of the flattened
// circuit are packed into columns: a leaf goes into the first column after
// every earlier leaf that shares a row with it.
package render

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/circuit"
)

// Diagram is a circuit laid out in columns. Ancilla qubits are drawn below
// the interface qubits.
type Diagram struct {
	qubits  []string
	bits    []string
	leaves  []circuit.Leaf
	columns [][]int // leaf indices per column, in circuit order
}

// New flattens op and packs its leaves.
func New(op circuit.Operation) (*Diagram, error) {
	if op == nil {
		return nil, errors.New("render: nil operation")
	}
	qubits, bits, err := wireLabels(op)
	if err != nil {
		return nil, err
	}
	d := &Diagram{qubits: qubits, bits: bits}

	nq, nb := op.NumQubits(), op.NumBits()
	na := len(qubits) - nq
	next := make([]int, len(qubits)+len(bits))
	for leaf, err := range circuit.Walk(op, span(0, nq), span(0, nb), span(nq, na)) {
		if err != nil {
			return nil, errors.Wrap(err, "render")
		}
		rows := d.rows(leaf)
		col := 0
		for _, r := range rows {
			col = max(col, next[r])
		}
		for _, r := range rows {
			next[r] = col + 1
		}
		if col == len(d.columns) {
			d.columns = append(d.columns, nil)
		}
		d.columns[col] = append(d.columns[col], len(d.leaves))
		d.leaves = append(d.leaves, leaf)
	}
	return d, nil
}

func wireLabels(op circuit.Operation) (qubits, bits []string, err error) {
	if seq, ok := op.(*circuit.Sequence); ok {
		qubits, bits = seq.Qubits(), seq.Bits()
	} else {
		for i := range op.NumQubits() {
			qubits = append(qubits, fmt.Sprintf("q[%d]", i))
		}
		for i := range op.NumBits() {
			bits = append(bits, fmt.Sprintf("c[%d]", i))
		}
	}
	anc, err := circuit.AncillaLabels(op)
	if err != nil {
		return nil, nil, errors.Wrap(err, "render")
	}
	return append(qubits, anc...), bits, nil
}

func span(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}

// rows lists the diagram rows a leaf's drawing covers. Qubit rows come
// first, then one row per bit. A leaf that touches bits covers everything
// from its top qubit down to its lowest bit.
func (d *Diagram) rows(leaf circuit.Leaf) []int {
	lo, hi := leaf.Qubits[0], leaf.Qubits[0]
	for _, q := range leaf.Qubits {
		lo, hi = min(lo, q), max(hi, q)
	}
	if len(leaf.Bits) > 0 {
		hi = len(d.qubits) - 1
		for _, b := range leaf.Bits {
			hi = max(hi, len(d.qubits)+b)
		}
	}
	return span(lo, hi-lo+1)
}

// Columns is the number of columns.
func (d *Diagram) Columns() int { return len(d.columns) }

// Qubits returns the qubit labels, ancillas last.
func (d *Diagram) Qubits() []string { return d.qubits }

// Bits returns the classical bit labels.
func (d *Diagram) Bits() []string { return d.bits }

// Column returns the leaves drawn in column i, in circuit order.
func (d *Diagram) Column(i int) []circuit.Leaf {
	out := make([]circuit.Leaf, len(d.columns[i]))
	for j, idx := range d.columns[i] {
		out[j] = d.leaves[idx]
	}
	return out
}

// Draw lays out and renders op in one call.
func Draw(op circuit.Operation, opts ...Option) (string, error) {
	d, err := New(op)
	if err != nil {
		return "", err
	}
	return d.Render(opts...), nil
}
