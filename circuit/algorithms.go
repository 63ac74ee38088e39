package circuit

import (
	"fmt"
	"math"
	"strconv"
)

// QFT is the quantum Fourier transform on n qubits, built from Hadamards,
// controlled phases named prefix+"Ph1" .. prefix+"Ph(n-1)" and a final qubit
// reversal. Ph j defaults to π/2^j.
type QFT struct {
	n      int
	prefix string
}

func NewQFT(n int, prefix string) *QFT { return &QFT{n: n, prefix: prefix} }

func (q *QFT) Name() string   { return fmt.Sprintf("QFT(%d, %q)", q.n, q.prefix) }
func (q *QFT) NumQubits() int { return q.n }
func (q *QFT) NumBits() int   { return 0 }
func (q *QFT) Kind() Kind     { return KindComposite }
func (q *QFT) Unitary() bool  { return true }

func (q *QFT) Inverse() (Operation, error) { return &InverseQFT{qft: q}, nil }

func (q *QFT) Defaults() map[string]float64 { return qftDefaults(q.n, q.prefix) }

func (q *QFT) Expand() (*Sequence, error) {
	wires := Wires(q.n)
	var steps []Step
	for i := range q.n {
		steps = append(steps, On(H(), wires[i]))
		for j := 1; j < q.n-i; j++ {
			cp := controlledOn(Phase(Named(q.prefix+"Ph"+strconv.Itoa(j))), []bool{true})
			steps = append(steps, On(cp, wires[i+j], wires[i]))
		}
	}
	steps = append(steps, On(NewQubitReversal(q.n), wires...))
	return NewSequence(wires, nil, steps)
}

func qftDefaults(n int, prefix string) map[string]float64 {
	out := make(map[string]float64, n)
	for j := 1; j < n; j++ {
		out[prefix+"Ph"+strconv.Itoa(j)] = math.Pi / math.Exp2(float64(j))
	}
	return out
}

// InverseQFT is the adjoint of QFT.
type InverseQFT struct {
	qft *QFT
}

func NewInverseQFT(n int, prefix string) *InverseQFT {
	return &InverseQFT{qft: NewQFT(n, prefix)}
}

func (q *InverseQFT) Name() string {
	return fmt.Sprintf("InverseQFT(%d, %q)", q.qft.n, q.qft.prefix)
}
func (q *InverseQFT) NumQubits() int               { return q.qft.n }
func (q *InverseQFT) NumBits() int                 { return 0 }
func (q *InverseQFT) Kind() Kind                   { return KindComposite }
func (q *InverseQFT) Unitary() bool                { return true }
func (q *InverseQFT) Inverse() (Operation, error)  { return q.qft, nil }
func (q *InverseQFT) Defaults() map[string]float64 { return q.qft.Defaults() }

func (q *InverseQFT) Expand() (*Sequence, error) {
	seq, err := q.qft.Expand()
	if err != nil {
		return nil, err
	}
	return seq.inverse()
}

// QubitReversal reverses the order of n qubits with swaps.
type QubitReversal struct{ n int }

func NewQubitReversal(n int) *QubitReversal { return &QubitReversal{n: n} }

func (r *QubitReversal) Name() string                { return fmt.Sprintf("QubitReversal(%d)", r.n) }
func (r *QubitReversal) NumQubits() int              { return r.n }
func (r *QubitReversal) NumBits() int                { return 0 }
func (r *QubitReversal) Kind() Kind                  { return KindComposite }
func (r *QubitReversal) Unitary() bool               { return true }
func (r *QubitReversal) Inverse() (Operation, error) { return r, nil }

func (r *QubitReversal) Expand() (*Sequence, error) {
	wires := Wires(r.n)
	steps := make([]Step, 0, r.n/2)
	for i := range r.n / 2 {
		steps = append(steps, On(Swap(), wires[i], wires[r.n-1-i]))
	}
	return NewSequence(wires, nil, steps)
}

// PCCM is the two-qubit phase-covariant cloning machine with one free
// rotation angle, bound under prefix+"RX("+name+")".
type PCCM struct {
	name   string
	prefix string
}

func NewPCCM(name, prefix string) *PCCM { return &PCCM{name: name, prefix: prefix} }

func (p *PCCM) Name() string                { return fmt.Sprintf("PCCM(%q, %q)", p.name, p.prefix) }
func (p *PCCM) NumQubits() int              { return 2 }
func (p *PCCM) NumBits() int                { return 0 }
func (p *PCCM) Kind() Kind                  { return KindComposite }
func (p *PCCM) Unitary() bool               { return true }
func (p *PCCM) Inverse() (Operation, error) { return &InversePCCM{pccm: p}, nil }

// AngleName is the table key of the free rotation angle.
func (p *PCCM) AngleName() string { return p.prefix + "RX(" + p.name + ")" }

func (p *PCCM) Defaults() map[string]float64 {
	return map[string]float64{
		p.prefix + "RX(π/2)":  math.Pi / 2,
		p.prefix + "RX(-π/2)": -math.Pi / 2,
		p.prefix + "RY(-π/2)": -math.Pi / 2,
	}
}

func (p *PCCM) Expand() (*Sequence, error) {
	rx90 := Rx(Named(p.prefix + "RX(π/2)"))
	rxm90 := Rx(Named(p.prefix + "RX(-π/2)"))
	on := []bool{true}
	return NewSequence([]string{"0", "1"}, nil, []Step{
		On(rx90, "0"),
		On(rx90, "1"),
		On(controlledOn(Rx(Named(p.AngleName())), on), "0", "1"),
		On(controlledOn(rxm90, on), "1", "0"),
		On(rxm90, "0"),
		On(Ry(Named(p.prefix+"RY(-π/2)")), "1"),
	})
}

// InversePCCM is the adjoint of PCCM.
type InversePCCM struct {
	pccm *PCCM
}

func NewInversePCCM(name, prefix string) *InversePCCM {
	return &InversePCCM{pccm: NewPCCM(name, prefix)}
}

func (p *InversePCCM) Name() string {
	return fmt.Sprintf("InversePCCM(%q, %q)", p.pccm.name, p.pccm.prefix)
}
func (p *InversePCCM) NumQubits() int               { return 2 }
func (p *InversePCCM) NumBits() int                 { return 0 }
func (p *InversePCCM) Kind() Kind                   { return KindComposite }
func (p *InversePCCM) Unitary() bool                { return true }
func (p *InversePCCM) Inverse() (Operation, error)  { return p.pccm, nil }
func (p *InversePCCM) Defaults() map[string]float64 { return p.pccm.Defaults() }

func (p *InversePCCM) Expand() (*Sequence, error) {
	seq, err := p.pccm.Expand()
	if err != nil {
		return nil, err
	}
	return seq.inverse()
}
