package circuit

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/linalg"
)

type family struct {
	mnemonic    string
	display     string
	qubits      int
	params      int
	selfInverse bool
	numeric     func(th []float64) linalg.Matrix[linalg.Complex]
	exact       func(th []float64) (linalg.Matrix[linalg.Exact], error)
}

func cx(re, im float64) linalg.Complex { return linalg.Complex(complex(re, im)) }

func expi(theta float64) linalg.Complex { return linalg.Complex(cmplx.Exp(complex(0, theta))) }

// exact cos(kπ/4) and sin(kπ/4)
func exactCos(k int) linalg.Exact {
	return linalg.Zeta(k).Add(linalg.Zeta(-k)).Mul(linalg.ExactFrac(1, 2))
}

func exactSin(k int) linalg.Exact {
	return linalg.Zeta(k).Sub(linalg.Zeta(-k)).Mul(linalg.ExactI().Neg()).Mul(linalg.ExactFrac(1, 2))
}

func phaseTurns(th []float64) (int, error) {
	k, ok := quarterTurns(th[0], math.Pi/4)
	if !ok {
		return 0, ErrInexact
	}
	return k, nil
}

// rotation gates use the half angle, so θ must be a multiple of π/2
func halfTurns(th []float64) (int, error) {
	k, ok := quarterTurns(th[0], math.Pi/2)
	if !ok {
		return 0, ErrInexact
	}
	return k, nil
}

var (
	e0 = linalg.Exact{}
	e1 = linalg.ExactInt(1)
	ei = linalg.ExactI()
)

var families = map[string]*family{
	"h": {
		mnemonic: "h", display: "Hadamard", qubits: 1, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			s := cx(1/math.Sqrt2, 0)
			return linalg.FromRows([][]linalg.Complex{{s, s}, {s, -s}})
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			s := linalg.InvSqrt2()
			return linalg.FromRows([][]linalg.Exact{{s, s}, {s, s.Neg()}}), nil
		},
	},
	"x": {
		mnemonic: "x", display: "PauliX", qubits: 1, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.FromRows([][]linalg.Complex{{0, 1}, {1, 0}})
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.FromRows([][]linalg.Exact{{e0, e1}, {e1, e0}}), nil
		},
	},
	"y": {
		mnemonic: "y", display: "PauliY", qubits: 1, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.FromRows([][]linalg.Complex{{0, cx(0, -1)}, {cx(0, 1), 0}})
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.FromRows([][]linalg.Exact{{e0, ei.Neg()}, {ei, e0}}), nil
		},
	},
	"z": {
		mnemonic: "z", display: "PauliZ", qubits: 1, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.Diagonal[linalg.Complex](1, -1)
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.Diagonal(e1, e1.Neg()), nil
		},
	},
	"s": {
		mnemonic: "s", display: "SGate", qubits: 1,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.Diagonal(1, cx(0, 1))
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.Diagonal(e1, ei), nil
		},
	},
	"t": {
		mnemonic: "t", display: "TGate", qubits: 1,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.Diagonal(1, expi(math.Pi/4))
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.Diagonal(e1, linalg.Zeta(1)), nil
		},
	},
	"sx": {
		mnemonic: "sx", display: "SqrtX", qubits: 1,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			a, b := cx(0.5, 0.5), cx(0.5, -0.5)
			return linalg.FromRows([][]linalg.Complex{{a, b}, {b, a}})
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			half := linalg.ExactFrac(1, 2)
			a, b := e1.Add(ei).Mul(half), e1.Sub(ei).Mul(half)
			return linalg.FromRows([][]linalg.Exact{{a, b}, {b, a}}), nil
		},
	},
	"p": {
		mnemonic: "p", display: "Phase", qubits: 1, params: 1,
		numeric: func(th []float64) linalg.Matrix[linalg.Complex] {
			return linalg.Diagonal(1, expi(th[0]))
		},
		exact: func(th []float64) (linalg.Matrix[linalg.Exact], error) {
			k, err := phaseTurns(th)
			if err != nil {
				return linalg.Matrix[linalg.Exact]{}, err
			}
			return linalg.Diagonal(e1, linalg.Zeta(k)), nil
		},
	},
	"rx": {
		mnemonic: "rx", display: "Rx", qubits: 1, params: 1,
		numeric: func(th []float64) linalg.Matrix[linalg.Complex] {
			c, s := cx(math.Cos(th[0]/2), 0), cx(0, -math.Sin(th[0]/2))
			return linalg.FromRows([][]linalg.Complex{{c, s}, {s, c}})
		},
		exact: func(th []float64) (linalg.Matrix[linalg.Exact], error) {
			k, err := halfTurns(th)
			if err != nil {
				return linalg.Matrix[linalg.Exact]{}, err
			}
			c, s := exactCos(k), exactSin(k).Mul(ei.Neg())
			return linalg.FromRows([][]linalg.Exact{{c, s}, {s, c}}), nil
		},
	},
	"ry": {
		mnemonic: "ry", display: "Ry", qubits: 1, params: 1,
		numeric: func(th []float64) linalg.Matrix[linalg.Complex] {
			c, s := cx(math.Cos(th[0]/2), 0), cx(math.Sin(th[0]/2), 0)
			return linalg.FromRows([][]linalg.Complex{{c, -s}, {s, c}})
		},
		exact: func(th []float64) (linalg.Matrix[linalg.Exact], error) {
			k, err := halfTurns(th)
			if err != nil {
				return linalg.Matrix[linalg.Exact]{}, err
			}
			c, s := exactCos(k), exactSin(k)
			return linalg.FromRows([][]linalg.Exact{{c, s.Neg()}, {s, c}}), nil
		},
	},
	"rz": {
		mnemonic: "rz", display: "Rz", qubits: 1, params: 1,
		numeric: func(th []float64) linalg.Matrix[linalg.Complex] {
			return linalg.Diagonal(expi(-th[0]/2), expi(th[0]/2))
		},
		exact: func(th []float64) (linalg.Matrix[linalg.Exact], error) {
			k, err := halfTurns(th)
			if err != nil {
				return linalg.Matrix[linalg.Exact]{}, err
			}
			return linalg.Diagonal(linalg.Zeta(-k), linalg.Zeta(k)), nil
		},
	},
	"rzz": {
		mnemonic: "rzz", display: "Rzz", qubits: 2, params: 1,
		numeric: func(th []float64) linalg.Matrix[linalg.Complex] {
			a, b := expi(-th[0]/2), expi(th[0]/2)
			return linalg.Diagonal(a, b, b, a)
		},
		exact: func(th []float64) (linalg.Matrix[linalg.Exact], error) {
			k, err := halfTurns(th)
			if err != nil {
				return linalg.Matrix[linalg.Exact]{}, err
			}
			a, b := linalg.Zeta(-k), linalg.Zeta(k)
			return linalg.Diagonal(a, b, b, a), nil
		},
	},
	"swap": {
		mnemonic: "swap", display: "SwapQubits", qubits: 2, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return permutation[linalg.Complex]([]int{1, 0})
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return permutation[linalg.Exact]([]int{1, 0}), nil
		},
	},
	"id": {
		mnemonic: "id", display: "Identity", qubits: 1, selfInverse: true,
		numeric: func([]float64) linalg.Matrix[linalg.Complex] {
			return linalg.Identity[linalg.Complex](2)
		},
		exact: func([]float64) (linalg.Matrix[linalg.Exact], error) {
			return linalg.Identity[linalg.Exact](2), nil
		},
	},
}

// aliases accepted by NewGate; the bool marks the adjoint
var aliases = map[string]struct {
	mnemonic string
	dagger   bool
}{
	"sdg":   {"s", true},
	"tdg":   {"t", true},
	"sxdg":  {"sx", true},
	"phase": {"p", false},
	"u1":    {"p", false},
	"i":     {"id", false},
}

// Gate is an elementary leaf operation with a matrix. Besides the built-in
// families a Gate can be a custom numeric gate bound by name on the
// simulator, or a permutation of its qubits.
type Gate struct {
	fam    *family
	params []Param
	dagger bool

	custom string
	qubits int
	order  []int
}

func builtin(mnemonic string, params ...Param) *Gate {
	return &Gate{fam: families[mnemonic], params: params}
}

func H() *Gate            { return builtin("h") }
func X() *Gate            { return builtin("x") }
func Y() *Gate            { return builtin("y") }
func Z() *Gate            { return builtin("z") }
func S() *Gate            { return builtin("s") }
func T() *Gate            { return builtin("t") }
func SX() *Gate           { return builtin("sx") }
func Swap() *Gate         { return builtin("swap") }
func I() *Gate            { return builtin("id") }
func Phase(p Param) *Gate { return builtin("p", p) }
func Rx(p Param) *Gate    { return builtin("rx", p) }
func Ry(p Param) *Gate    { return builtin("ry", p) }
func Rz(p Param) *Gate    { return builtin("rz", p) }
func Rzz(p Param) *Gate   { return builtin("rzz", p) }
func Sdg() *Gate          { return &Gate{fam: families["s"], dagger: true} }
func Tdg() *Gate          { return &Gate{fam: families["t"], dagger: true} }

// InversePhase is the adjoint of Phase(p).
func InversePhase(p Param) *Gate {
	return &Gate{fam: families["p"], params: []Param{p}, dagger: true}
}

// NewGate builds a gate from its OpenQASM mnemonic.
func NewGate(mnemonic string, params ...Param) (*Gate, error) {
	mnemonic = strings.ToLower(mnemonic)
	dagger := false
	if a, ok := aliases[mnemonic]; ok {
		mnemonic, dagger = a.mnemonic, a.dagger
	}
	fam, ok := families[mnemonic]
	if !ok {
		return nil, errors.Errorf("circuit: unknown gate %q", mnemonic)
	}
	if len(params) != fam.params {
		return nil, errors.Errorf("circuit: gate %s takes %d parameters, got %d", mnemonic, fam.params, len(params))
	}
	return &Gate{fam: fam, params: slices.Clone(params), dagger: dagger && !fam.selfInverse}, nil
}

// IsGate reports whether mnemonic names a built-in gate family.
func IsGate(mnemonic string) bool {
	mnemonic = strings.ToLower(mnemonic)
	if _, ok := aliases[mnemonic]; ok {
		return true
	}
	_, ok := families[mnemonic]
	return ok
}

// Custom returns a numeric-only gate on n qubits whose matrix is looked up
// under name in the simulator's value table.
func Custom(name string, n int) *Gate {
	return &Gate{custom: name, qubits: n}
}

// PermuteQubits moves the qubit at position order[j] to position j.
// PermuteQubits(2, 1, 0) reverses three qubits.
func PermuteQubits(order ...int) (*Gate, error) {
	seen := make([]bool, len(order))
	for _, o := range order {
		if o < 0 || o >= len(order) || seen[o] {
			return nil, errors.Errorf("circuit: %v is not a permutation", order)
		}
		seen[o] = true
	}
	return &Gate{order: slices.Clone(order), qubits: len(order)}, nil
}

// Mnemonic is the lowercase family name: "h", "rx", ..., "custom" or
// "permute".
func (g *Gate) Mnemonic() string {
	switch {
	case g.fam != nil:
		return g.fam.mnemonic
	case g.order != nil:
		return "permute"
	default:
		return "custom"
	}
}

// CustomName returns the table key of a custom gate.
func (g *Gate) CustomName() string { return g.custom }

// Key identifies the gate type exactly. Unlike Name it keeps the arity of
// custom gates and the raw bits of literal angles.
func (g *Gate) Key() string {
	var sb strings.Builder
	sb.WriteString(g.Mnemonic())
	if g.fam == nil && g.order == nil {
		sb.WriteString(strconv.Quote(g.custom))
	}
	fmt.Fprintf(&sb, "/%d", g.NumQubits())
	for _, o := range g.order {
		fmt.Fprintf(&sb, ",%d", o)
	}
	if g.dagger {
		sb.WriteString("/dg")
	}
	for _, p := range g.params {
		fmt.Fprintf(&sb, "/%s*%x", strconv.Quote(p.Name), math.Float64bits(p.Value))
	}
	return sb.String()
}

func (g *Gate) Params() []Param { return slices.Clone(g.params) }
func (g *Gate) Dagger() bool    { return g.dagger }
func (g *Gate) Order() []int    { return slices.Clone(g.order) }

func (g *Gate) Name() string {
	var base string
	switch {
	case g.fam != nil:
		base = g.fam.display
		if len(g.params) > 0 {
			ps := make([]string, len(g.params))
			for i, p := range g.params {
				ps[i] = p.String()
			}
			base += "(" + strings.Join(ps, ", ") + ")"
		}
	case g.order != nil:
		ps := make([]string, len(g.order))
		for i, o := range g.order {
			ps[i] = fmt.Sprint(o)
		}
		base = "PermuteQubits([" + strings.Join(ps, ", ") + "])"
	default:
		base = g.custom
	}
	if g.dagger {
		return "Inverse" + base
	}
	return base
}

func (g *Gate) NumQubits() int {
	if g.fam != nil {
		return g.fam.qubits
	}
	return g.qubits
}

func (g *Gate) NumBits() int  { return 0 }
func (g *Gate) Kind() Kind    { return KindGate }
func (g *Gate) Unitary() bool { return true }

func (g *Gate) Inverse() (Operation, error) {
	if g.fam != nil && g.fam.selfInverse {
		return g, nil
	}
	inv := *g
	if g.order != nil {
		inv.order = make([]int, len(g.order))
		for j, o := range g.order {
			inv.order[o] = j
		}
		return &inv, nil
	}
	inv.dagger = !g.dagger
	return &inv, nil
}

// Prefixed returns g with every named parameter moved into the namespace.
func (g *Gate) Prefixed(prefix string) *Gate {
	if prefix == "" || !slices.ContainsFunc(g.params, Param.IsNamed) {
		return g
	}
	out := *g
	out.params = make([]Param, len(g.params))
	for i, p := range g.params {
		out.params[i] = p.Prefixed(prefix)
	}
	return &out
}

func (g *Gate) resolve(vals Values) ([]float64, error) {
	th := make([]float64, len(g.params))
	for i, p := range g.params {
		v, err := p.Resolve(vals)
		if err != nil {
			return nil, err
		}
		th[i] = v
	}
	return th, nil
}

// Numeric returns the complex matrix of g.
func (g *Gate) Numeric(vals Values) (linalg.Matrix[linalg.Complex], error) {
	var m linalg.Matrix[linalg.Complex]
	switch {
	case g.order != nil:
		return permutation[linalg.Complex](g.order), nil
	case g.fam == nil:
		var ok bool
		if vals != nil {
			m, ok = vals.Matrix(g.custom)
		}
		if !ok {
			return m, errors.Errorf("circuit: no matrix bound for gate %q", g.custom)
		}
		if m.Rows() != 1<<g.qubits || m.Cols() != 1<<g.qubits {
			return linalg.Matrix[linalg.Complex]{}, errors.Errorf("circuit: matrix for gate %q is %dx%d, want %d qubits", g.custom, m.Rows(), m.Cols(), g.qubits)
		}
	default:
		th, err := g.resolve(vals)
		if err != nil {
			return m, err
		}
		m = g.fam.numeric(th)
	}
	if g.dagger {
		return m.Adjoint(), nil
	}
	return m, nil
}

// Exact returns the matrix of g over the exact domain, or ErrInexact /
// ErrNumericOnly when it has none.
func (g *Gate) Exact(vals Values) (linalg.Matrix[linalg.Exact], error) {
	switch {
	case g.order != nil:
		return permutation[linalg.Exact](g.order), nil
	case g.fam == nil:
		return linalg.Matrix[linalg.Exact]{}, ErrNumericOnly
	}
	th, err := g.resolve(vals)
	if err != nil {
		return linalg.Matrix[linalg.Exact]{}, err
	}
	m, err := g.fam.exact(th)
	if err != nil {
		return m, errors.Wrapf(err, "%s", g.Name())
	}
	if g.dagger {
		return m.Adjoint(), nil
	}
	return m, nil
}

// permutation maps basis state |b0 ... b(n-1)> to |b(order[0]) ... b(order[n-1])>.
func permutation[T linalg.Scalar[T]](order []int) linalg.Matrix[T] {
	n := len(order)
	dim := 1 << n
	m := linalg.NewMatrix[T](dim, dim)
	var one T
	one = one.One()
	for in := range dim {
		out := 0
		for j, o := range order {
			if in&linalg.WireBit(n, o) != 0 {
				out |= linalg.WireBit(n, j)
			}
		}
		m.Set(out, in, one)
	}
	return m
}
