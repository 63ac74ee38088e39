package linalg

import (
	"math"
	"math/big"
	"strings"
)

// Exact is an element of Q(ζ), ζ = e^{iπ/4}, stored as rational coefficients
// of the basis 1, ζ, ζ², ζ³ (ζ⁴ = -1). The field contains i = ζ², √2 = ζ - ζ³
// and every Clifford+T gate entry, so circuits over that gate set evolve
// without rounding. A nil coefficient means zero; the zero value is 0.
type Exact struct {
	c [4]*big.Rat
}

// ExactInt returns the integer n.
func ExactInt(n int64) Exact {
	var e Exact
	if n != 0 {
		e.c[0] = big.NewRat(n, 1)
	}
	return e
}

// ExactFrac returns num/den.
func ExactFrac(num, den int64) Exact {
	var e Exact
	if num != 0 {
		e.c[0] = big.NewRat(num, den)
	}
	return e
}

// ExactRat returns the rational r.
func ExactRat(r *big.Rat) Exact {
	var e Exact
	if r.Sign() != 0 {
		e.c[0] = new(big.Rat).Set(r)
	}
	return e
}

// Zeta returns ζ^k = e^{ikπ/4}.
func Zeta(k int) Exact {
	k = ((k % 8) + 8) % 8
	var e Exact
	if k < 4 {
		e.c[k] = big.NewRat(1, 1)
	} else {
		e.c[k-4] = big.NewRat(-1, 1)
	}
	return e
}

// ExactI returns the imaginary unit.
func ExactI() Exact { return Zeta(2) }

// Sqrt2 returns √2 = ζ - ζ³.
func Sqrt2() Exact { return Zeta(1).Sub(Zeta(3)) }

// InvSqrt2 returns 1/√2.
func InvSqrt2() Exact { return Sqrt2().ScaleRat(big.NewRat(1, 2)) }

func (e Exact) coef(i int) *big.Rat {
	if e.c[i] == nil {
		return new(big.Rat)
	}
	return e.c[i]
}

func (e Exact) Add(o Exact) Exact {
	var r Exact
	for i := range 4 {
		r.c[i] = new(big.Rat).Add(e.coef(i), o.coef(i))
	}
	return r.norm()
}

func (e Exact) Sub(o Exact) Exact {
	var r Exact
	for i := range 4 {
		r.c[i] = new(big.Rat).Sub(e.coef(i), o.coef(i))
	}
	return r.norm()
}

func (e Exact) Mul(o Exact) Exact {
	var acc [4]*big.Rat
	for i := range 4 {
		acc[i] = new(big.Rat)
	}
	tmp := new(big.Rat)
	for i := range 4 {
		if e.c[i] == nil || e.c[i].Sign() == 0 {
			continue
		}
		for j := range 4 {
			if o.c[j] == nil || o.c[j].Sign() == 0 {
				continue
			}
			tmp.Mul(e.c[i], o.c[j])
			k := i + j
			if k >= 4 {
				acc[k-4].Sub(acc[k-4], tmp)
			} else {
				acc[k].Add(acc[k], tmp)
			}
		}
	}
	return Exact{c: acc}.norm()
}

func (e Exact) Neg() Exact {
	var r Exact
	for i := range 4 {
		if e.c[i] != nil {
			r.c[i] = new(big.Rat).Neg(e.c[i])
		}
	}
	return r.norm()
}

// ScaleRat multiplies e by the rational q.
func (e Exact) ScaleRat(q *big.Rat) Exact {
	var r Exact
	for i := range 4 {
		if e.c[i] != nil {
			r.c[i] = new(big.Rat).Mul(e.c[i], q)
		}
	}
	return r.norm()
}

// galois applies the automorphism ζ -> ζ^k (k odd).
func (e Exact) galois(k int) Exact {
	var acc [4]*big.Rat
	for i := range 4 {
		acc[i] = new(big.Rat)
	}
	for j := range 4 {
		if e.c[j] == nil {
			continue
		}
		p := (j * k) % 8
		if p >= 4 {
			acc[p-4].Sub(acc[p-4], e.c[j])
		} else {
			acc[p].Add(acc[p], e.c[j])
		}
	}
	return Exact{c: acc}.norm()
}

// Conj is the automorphism ζ -> ζ⁷ = ζ̄.
func (e Exact) Conj() Exact { return e.galois(7) }

// Inv uses the field norm: e · σ3(e)σ5(e)σ7(e) is rational.
func (e Exact) Inv() (Exact, error) {
	if e.IsZero() {
		return Exact{}, ErrDivisionByZero
	}
	rest := e.galois(3).Mul(e.galois(5)).Mul(e.galois(7))
	n := e.Mul(rest).coef(0)
	return rest.ScaleRat(new(big.Rat).Inv(n)), nil
}

func (e Exact) IsZero() bool {
	for _, c := range e.c {
		if c != nil && c.Sign() != 0 {
			return false
		}
	}
	return true
}

func (e Exact) Equal(o Exact) bool { return e.Sub(o).IsZero() }

func (Exact) Zero() Exact { return Exact{} }
func (Exact) One() Exact  { return ExactInt(1) }

// Parts splits e into real and imaginary parts of the form p + q√2.
func (e Exact) Parts() (reP, reQ, imP, imQ *big.Rat) {
	half := big.NewRat(1, 2)
	b, d := e.coef(1), e.coef(3)
	reP = new(big.Rat).Set(e.coef(0))
	reQ = new(big.Rat).Mul(new(big.Rat).Sub(b, d), half)
	imP = new(big.Rat).Set(e.coef(2))
	imQ = new(big.Rat).Mul(new(big.Rat).Add(b, d), half)
	return
}

// IsReal reports whether the imaginary part vanishes.
func (e Exact) IsReal() bool {
	_, _, p, q := e.Parts()
	return p.Sign() == 0 && q.Sign() == 0
}

func (e Exact) Complex() complex128 {
	reP, reQ, imP, imQ := e.Parts()
	rp, _ := reP.Float64()
	rq, _ := reQ.Float64()
	ip, _ := imP.Float64()
	iq, _ := imQ.Float64()
	return complex(rp+rq*math.Sqrt2, ip+iq*math.Sqrt2)
}

func (e Exact) String() string {
	reP, reQ, imP, imQ := e.Parts()
	re := formatSurd(reP, reQ)
	im := formatSurd(imP, imQ)
	switch {
	case im == "0":
		return re
	case re == "0":
		return wrapSum(im) + "i"
	default:
		return re + " + " + wrapSum(im) + "i"
	}
}

func (e Exact) norm() Exact {
	for i := range 4 {
		if e.c[i] != nil && e.c[i].Sign() == 0 {
			e.c[i] = nil
		}
	}
	return e
}

// formatSurd renders p + q√2 with q printed as n√2/d.
func formatSurd(p, q *big.Rat) string {
	var terms []string
	if p.Sign() != 0 {
		terms = append(terms, p.RatString())
	}
	if q.Sign() != 0 {
		num := new(big.Int).Abs(q.Num())
		s := "√2"
		if num.Cmp(big.NewInt(1)) != 0 {
			s = num.String() + "√2"
		}
		if !q.IsInt() {
			s += "/" + q.Denom().String()
		}
		if q.Sign() < 0 {
			s = "-" + s
		}
		terms = append(terms, s)
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Replace(strings.Join(terms, " + "), "+ -", "- ", 1)
}

func wrapSum(s string) string {
	if strings.Contains(s, " ") {
		return "(" + s + ")"
	}
	return s
}
