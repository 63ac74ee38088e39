package sim

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

// branch is one measurement history. Under Collapse there is a single
// normalised branch; under Enumerate the traces of all branches sum to one.
type branch[T linalg.Scalar[T]] struct {
	bits []bool
	rho  linalg.Matrix[T]
}

type density[T linalg.Scalar[T]] struct {
	env      *env
	dom      domain[T]
	branches []*branch[T]
}

func newDensity[T linalg.Scalar[T]](e *env, dom domain[T]) *density[T] {
	b := &density[T]{env: e, dom: dom}
	b.reinit()
	return b
}

func (b *density[T]) reinit() {
	dim := 1 << b.env.n
	rho := linalg.NewMatrix[T](dim, dim)
	var z T
	rho.Set(0, 0, z.One())
	b.branches = []*branch[T]{{bits: make([]bool, b.env.nbits), rho: rho}}
	b.env.metrics.setBranches(b.env.kind, 1)
}

func (b *density[T]) apply(op circuit.Operation, qubits, bits []int, cond condition) error {
	switch op.Kind() {
	case circuit.KindMeasure:
		return b.measure(qubits, bits, cond)
	case circuit.KindReset:
		for _, br := range b.branches {
			if cond.holds(br.bits) {
				br.rho = resetChannel(br.rho, b.env.n, qubits)
			}
		}
		return nil
	}

	var (
		l     lifted[T]
		ready bool
	)
	for _, br := range b.branches {
		if !cond.holds(br.bits) {
			b.env.metrics.skip(b.env.kind)
			continue
		}
		if !ready {
			var err error
			if l, err = b.dom.lift(b.env, op, qubits); err != nil {
				return err
			}
			ready = true
		}
		linalg.Conjugate(br.rho, b.env.n, l.targets, l.ctrl, l.m)
	}
	return nil
}

func (b *density[T]) measure(wires, bits []int, cond condition) error {
	next := make([]*branch[T], 0, len(b.branches))
	for _, br := range b.branches {
		if !cond.holds(br.bits) {
			b.env.metrics.skip(b.env.kind)
			next = append(next, br)
			continue
		}
		reduced, err := linalg.PartialTrace(br.rho, b.env.n, wires)
		if err != nil {
			return errors.Wrap(err, "sim: measurement marginal")
		}
		dim := reduced.Rows()

		if b.env.policy == Collapse {
			weights := make([]float64, dim)
			for k := range dim {
				weights[k] = max(real(reduced.At(k, k).Complex()), 0)
			}
			k, err := sample(b.env.rng, weights)
			if err != nil {
				return err
			}
			inv, err := reduced.At(k, k).Inv()
			if err != nil {
				return errors.Wrap(err, "sim: renormalising measured state")
			}
			next = append(next, &branch[T]{
				bits: outcomeBits(br.bits, bits, k),
				rho:  project(br.rho, b.env.n, wires, k).Scale(inv),
			})
			b.env.logger.Debug("measured",
				zap.Ints("qubits", wires),
				zap.Ints("bits", bits),
				zap.Int("outcome", k))
			continue
		}

		for k := range dim {
			if b.dom.negligible(reduced.At(k, k)) {
				continue
			}
			next = append(next, &branch[T]{
				bits: outcomeBits(br.bits, bits, k),
				rho:  project(br.rho, b.env.n, wires, k),
			})
		}
	}
	if len(next) == 0 {
		return errors.New("sim: every measurement outcome has zero probability")
	}
	b.branches = merge(next)
	b.env.metrics.measured(b.env.kind)
	b.env.metrics.setBranches(b.env.kind, len(b.branches))
	if b.env.policy == Enumerate {
		b.env.logger.Debug("measurement branches", zap.Int("branches", len(b.branches)))
	}
	return nil
}

// project keeps the block of rho whose rows and columns agree with outcome k
// on wires.
func project[T linalg.Scalar[T]](rho linalg.Matrix[T], n int, wires []int, k int) linalg.Matrix[T] {
	dim := rho.Rows()
	out := linalg.NewMatrix[T](dim, dim)
	keep := make([]bool, dim)
	for i := range dim {
		keep[i] = matches(n, wires, i, k)
	}
	for i := range dim {
		if !keep[i] {
			continue
		}
		for j := range dim {
			if keep[j] {
				out.Set(i, j, rho.At(i, j))
			}
		}
	}
	return out
}

// resetChannel maps rho to Σ_k |0><k| rho |k><0| over the basis of wires.
func resetChannel[T linalg.Scalar[T]](rho linalg.Matrix[T], n int, wires []int) linalg.Matrix[T] {
	mask := 0
	for _, w := range wires {
		mask |= linalg.WireBit(n, w)
	}
	dim := rho.Rows()
	out := linalg.NewMatrix[T](dim, dim)
	for i := range dim {
		for j := range dim {
			if i&mask != j&mask {
				continue
			}
			v := rho.At(i, j)
			if v.IsZero() {
				continue
			}
			ni, nj := i&^mask, j&^mask
			out.Set(ni, nj, out.At(ni, nj).Add(v))
		}
	}
	return out
}

// merge sums branches that agree on every classical bit, keeping first-seen
// order.
func merge[T linalg.Scalar[T]](in []*branch[T]) []*branch[T] {
	index := make(map[string]int, len(in))
	out := make([]*branch[T], 0, len(in))
	for _, br := range in {
		key := bitKey(br.bits)
		if i, ok := index[key]; ok {
			out[i].rho = out[i].rho.Add(br.rho)
			continue
		}
		index[key] = len(out)
		out = append(out, br)
	}
	return out
}

func bitKey(bits []bool) string {
	var sb strings.Builder
	for _, b := range bits {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// mixture sums the branches into the ensemble density matrix.
func (b *density[T]) mixture() linalg.Matrix[T] {
	out := b.branches[0].rho.Clone()
	for _, br := range b.branches[1:] {
		out = out.Add(br.rho)
	}
	return out
}

func (b *density[T]) classical() ([]bool, error) {
	first := b.branches[0].bits
	for _, br := range b.branches[1:] {
		if bitKey(br.bits) != bitKey(first) {
			return nil, ErrAmbiguousBits
		}
	}
	return append([]bool(nil), first...), nil
}
