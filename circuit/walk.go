package circuit

import (
	"fmt"
	"iter"
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

// Leaf is one elementary operation on absolute wires. Op is a *Gate, a
// *Controlled whose base is a *Gate, a *Measurement, a *ResetOp or a
// *BarrierOp, possibly wrapped in a single *Classical. Qubits and Bits list
// every wire of Op in its own positional order, controls and condition bits
// first.
type Leaf struct {
	Op     Operation
	Qubits []int
	Bits   []int
	Scope  string
}

// LeafSeq is a lazy, restartable traversal. Iteration stops after the first
// error.
type LeafSeq = iter.Seq2[Leaf, error]

type frame struct {
	scope      string
	ctrlWires  []int
	ctrlOn     []bool
	condBits   []int
	condValues []bool
}

type walker struct {
	pool   []int
	next   int
	labels []string
}

// Walk flattens op placed on absolute qubits and bits. Ancillas declared by
// nested sequences are taken in order from the ancillas pool, which must
// hold at least AncillaCount(op) distinct wires.
func Walk(op Operation, qubits, bits, ancillas []int) LeafSeq {
	return func(yield func(Leaf, error) bool) {
		if op == nil {
			yield(Leaf{}, errors.New("circuit: walk of nil operation"))
			return
		}
		if len(qubits) != op.NumQubits() || len(bits) != op.NumBits() {
			yield(Leaf{}, structural(WireCountMismatch, -1, "",
				fmt.Sprintf("%s takes %d qubits and %d bits, got %d and %d",
					op.Name(), op.NumQubits(), op.NumBits(), len(qubits), len(bits))))
			return
		}
		w := &walker{pool: ancillas}
		w.visit(op, qubits, bits, frame{}, "0", yield)
	}
}

// Flatten collects the traversal of op on its own wire order.
func Flatten(op Operation) ([]Leaf, error) {
	if s, ok := op.(*Sequence); ok {
		return collect(s.Leaves())
	}
	n := op.NumQubits()
	return collect(Walk(op, identity(0, n), identity(0, op.NumBits()), identity(n, AncillaCount(op))))
}

func collect(seq LeafSeq) ([]Leaf, error) {
	var out []Leaf
	for leaf, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, leaf)
	}
	return out, nil
}

// AncillaCount is the number of ancilla wires a traversal of op allocates.
// Operations that fail to expand count as zero; Walk reports their error.
func AncillaCount(op Operation) int {
	switch o := op.(type) {
	case *Scoped:
		return AncillaCount(o.base)
	case *Controlled:
		return AncillaCount(o.base)
	case *Classical:
		return AncillaCount(o.base)
	case Expander:
		seq, err := o.Expand()
		if err != nil {
			return 0
		}
		total := len(seq.ancillas)
		for _, st := range seq.steps {
			total += AncillaCount(st.Op)
		}
		return total
	}
	return 0
}

// AncillaLabels lists the labels of the ancillas a traversal of op
// allocates, in allocation order. Labels are derived from the namespace and
// the position of the declaring sequence in the tree, so they are unique.
func AncillaLabels(op Operation) ([]string, error) {
	n := AncillaCount(op)
	w := &walker{pool: identity(op.NumQubits(), n)}
	for _, err := range walkWith(w, op) {
		if err != nil {
			return nil, err
		}
	}
	return w.labels, nil
}

func walkWith(w *walker, op Operation) LeafSeq {
	return func(yield func(Leaf, error) bool) {
		w.visit(op, identity(0, op.NumQubits()), identity(0, op.NumBits()), frame{}, "0", yield)
	}
}

func (w *walker) visit(op Operation, qubits, bits []int, fr frame, path string, yield func(Leaf, error) bool) bool {
	switch o := op.(type) {
	case *Scoped:
		fr.scope += o.prefix
		return w.visit(o.base, qubits, bits, fr, path, yield)

	case *Controlled:
		nc := len(o.pattern)
		fr.ctrlWires = append(slices.Clone(fr.ctrlWires), qubits[:nc]...)
		fr.ctrlOn = append(slices.Clone(fr.ctrlOn), o.pattern...)
		return w.visit(o.base, qubits[nc:], bits, fr, path, yield)

	case *Classical:
		nb := len(o.values)
		fr.condBits = append(slices.Clone(fr.condBits), bits[:nb]...)
		fr.condValues = append(slices.Clone(fr.condValues), o.values...)
		return w.visit(o.base, qubits, bits[nb:], fr, path, yield)

	case *Gate:
		return w.emit(o.Prefixed(fr.scope), qubits, bits, fr, yield)

	case *Measurement, *ResetOp:
		if len(fr.ctrlWires) > 0 {
			return yield(Leaf{}, structural(NonUnitaryControl, -1, op.Name(), ""))
		}
		return w.emit(op, qubits, bits, fr, yield)

	case *BarrierOp:
		// a barrier under control or condition still only marks its own wires
		return yield(Leaf{Op: o, Qubits: slices.Clone(qubits), Scope: fr.scope}, nil)

	case Expander:
		seq, err := o.Expand()
		if err != nil {
			return yield(Leaf{}, errors.Wrapf(err, "expand %s", o.Name()))
		}
		return w.visitSequence(seq, qubits, bits, fr, path, yield)
	}
	return yield(Leaf{}, errors.Errorf("circuit: cannot flatten %T (%s)", op, op.Name()))
}

func (w *walker) visitSequence(seq *Sequence, qubits, bits []int, fr frame, path string, yield func(Leaf, error) bool) bool {
	if len(qubits) != len(seq.qubits) || len(bits) != len(seq.bits) {
		return yield(Leaf{}, structural(WireCountMismatch, -1, "",
			fmt.Sprintf("expansion of %s has %d qubits and %d bits, placed on %d and %d",
				seq.Name(), len(seq.qubits), len(seq.bits), len(qubits), len(bits))))
	}
	qmap := make(map[string]int, len(seq.qubits)+len(seq.ancillas))
	for i, l := range seq.qubits {
		qmap[l] = qubits[i]
	}
	for _, l := range seq.ancillas {
		if w.next >= len(w.pool) {
			return yield(Leaf{}, errors.Errorf("circuit: ancilla pool of %d wires exhausted", len(w.pool)))
		}
		qmap[l] = w.pool[w.next]
		w.next++
		w.labels = append(w.labels, fr.scope+l+"@"+path)
	}
	bmap := make(map[string]int, len(seq.bits))
	for i, l := range seq.bits {
		bmap[l] = bits[i]
	}

	for i, st := range seq.steps {
		q := make([]int, len(st.Qubits))
		for j, l := range st.Qubits {
			q[j] = qmap[l]
		}
		b := make([]int, len(st.Bits))
		for j, l := range st.Bits {
			b[j] = bmap[l]
		}
		if !w.visit(st.Op, q, b, fr, path+"."+strconv.Itoa(i), yield) {
			return false
		}
	}
	return true
}

func (w *walker) emit(op Operation, qubits, bits []int, fr frame, yield func(Leaf, error) bool) bool {
	leaf := Leaf{Op: op, Qubits: slices.Clone(qubits), Bits: slices.Clone(bits), Scope: fr.scope}
	if len(fr.ctrlWires) > 0 {
		leaf.Op = controlledOn(op, fr.ctrlOn)
		leaf.Qubits = append(slices.Clone(fr.ctrlWires), qubits...)
	}
	if len(fr.condBits) > 0 {
		leaf.Op = classicalOn(leaf.Op, fr.condValues)
		leaf.Bits = append(slices.Clone(fr.condBits), bits...)
	}
	return yield(leaf, nil)
}
