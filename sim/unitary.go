package sim

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
)

// unitary accumulates the circuit's matrix: every leaf G replaces U with G·U.
type unitary[T linalg.Scalar[T]] struct {
	env  *env
	dom  domain[T]
	u    linalg.Matrix[T]
	bits []bool
}

func newUnitary[T linalg.Scalar[T]](e *env, dom domain[T]) *unitary[T] {
	b := &unitary[T]{env: e, dom: dom}
	b.reinit()
	return b
}

func (b *unitary[T]) reinit() {
	b.u = linalg.Identity[T](1 << b.env.n)
	b.bits = make([]bool, b.env.nbits)
}

func (b *unitary[T]) apply(op circuit.Operation, qubits, _ []int, cond condition) error {
	switch op.Kind() {
	case circuit.KindMeasure, circuit.KindReset:
		return b.env.unsupported(op, errors.New("operation is not unitary"))
	}
	if !cond.holds(b.bits) {
		b.env.metrics.skip(b.env.kind)
		b.env.logger.Debug("classical condition not met", zap.String("op", op.Name()))
		return nil
	}
	l, err := b.dom.lift(b.env, op, qubits)
	if err != nil {
		return err
	}
	linalg.ApplyLeft(b.u, b.env.n, l.targets, l.ctrl, l.m)
	return nil
}

func (b *unitary[T]) classical() ([]bool, error) {
	return append([]bool(nil), b.bits...), nil
}
