package circuit

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/linalg"
)

// Param is a gate angle. A literal Param carries its value directly; a named
// Param is Value times the value bound to Name when the circuit is simulated.
type Param struct {
	Name  string
	Value float64
}

// Angle returns a literal parameter.
func Angle(v float64) Param { return Param{Value: v} }

// Named returns a parameter resolved from the value table.
func Named(name string) Param { return Param{Name: name, Value: 1} }

// Scaled multiplies the parameter by f.
func (p Param) Scaled(f float64) Param {
	p.Value *= f
	return p
}

// Prefixed renames a named parameter into a namespace. Literals are unchanged.
func (p Param) Prefixed(prefix string) Param {
	if p.Name != "" {
		p.Name = prefix + p.Name
	}
	return p
}

func (p Param) IsNamed() bool { return p.Name != "" }

// Resolve returns the numeric angle of p.
func (p Param) Resolve(vals Values) (float64, error) {
	if p.Name == "" {
		return p.Value, nil
	}
	if vals != nil {
		if v, ok := vals.Value(p.Name); ok {
			return p.Value * v, nil
		}
	}
	return 0, &UnboundParameterError{Name: p.Name}
}

func (p Param) String() string {
	if p.Name == "" {
		return FormatAngle(p.Value)
	}
	switch p.Value {
	case 1:
		return p.Name
	case -1:
		return "-" + p.Name
	default:
		return strconv.FormatFloat(p.Value, 'g', -1, 64) + "*" + p.Name
	}
}

// Values is the read side of a parameter table.
type Values interface {
	Value(name string) (float64, bool)
	Matrix(name string) (linalg.Matrix[linalg.Complex], bool)
}

// Table binds parameter names to angles and custom gate names to matrices.
// The zero value is not usable; call NewTable.
type Table struct {
	values   map[string]float64
	matrices map[string]linalg.Matrix[linalg.Complex]
}

func NewTable() *Table {
	return &Table{
		values:   make(map[string]float64),
		matrices: make(map[string]linalg.Matrix[linalg.Complex]),
	}
}

func (t *Table) Set(name string, v float64) { t.values[name] = v }

func (t *Table) SetMatrix(name string, m linalg.Matrix[linalg.Complex]) {
	t.matrices[name] = m.Clone()
}

func (t *Table) Value(name string) (float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

func (t *Table) Matrix(name string) (linalg.Matrix[linalg.Complex], bool) {
	m, ok := t.matrices[name]
	return m, ok
}

// Merge copies every value in vals into t, overwriting existing names.
func (t *Table) Merge(vals map[string]float64) {
	maps.Copy(t.values, vals)
}

// MergeTable copies every value and matrix bound in o into t.
func (t *Table) MergeTable(o *Table) {
	maps.Copy(t.values, o.values)
	for name, m := range o.matrices {
		t.matrices[name] = m.Clone()
	}
}

// Names returns the bound parameter names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.values))
	for n := range t.values {
		names = append(names, n)
	}
	return names
}

// piExprRegex matches expressions like: pi, 2pi, 2*pi, pi/2, 3pi/4, 3*pi/4, -pi, -pi/2, -3*pi/4
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*(?:pi|π)(?:\s*/\s*(\d+\.?\d*))?$`)

// ParseAngle parses a plain number or a pi expression.
//
// Supported formats:
//   - Plain numbers: "1.5707", "3.14", "-0.5"
//   - Pi constant: "pi" or "π"
//   - Pi fractions: "pi/2", "pi/4", "pi/3"
//   - Coefficients: "2pi", "2*pi", "3pi/4", "3*pi/4"
//   - Negative: "-pi", "-pi/2", "-3*pi/4"
func ParseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("circuit: empty angle")
	}

	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, nil
	}

	matches := piExprRegex.FindStringSubmatch(strings.ToLower(s))
	if matches == nil {
		return 0, errors.Errorf("circuit: cannot parse angle %q", s)
	}

	coeff := 1.0
	if matches[2] != "" {
		var err error
		coeff, err = strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, errors.Wrapf(err, "circuit: angle %q", s)
		}
	}
	result := coeff * math.Pi
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return 0, errors.Errorf("circuit: bad denominator in angle %q", s)
		}
		result /= denom
	}
	if matches[1] == "-" {
		result = -result
	}
	return result, nil
}

// FormatAngle formats a value using pi notation when it is a common fraction
// of pi.
func FormatAngle(val float64) string {
	if val == 0 {
		return "0"
	}
	for _, den := range []int{1, 2, 3, 4, 6, 8, 16, 32, 64} {
		q := val * float64(den) / math.Pi
		num := math.Round(q)
		if num == 0 || math.Abs(q-num) > 1e-10 || math.Abs(num) > 16 {
			continue
		}
		n := int(num)
		var s string
		switch {
		case n == 1:
			s = "pi"
		case n == -1:
			s = "-pi"
		default:
			s = fmt.Sprintf("%d*pi", n)
		}
		if den != 1 {
			s += "/" + strconv.Itoa(den)
		}
		return s
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// quarterTurns returns k with theta = k*unit when theta is such a multiple.
func quarterTurns(theta, unit float64) (int, bool) {
	q := theta / unit
	k := math.Round(q)
	if math.Abs(q-k) > 1e-9 {
		return 0, false
	}
	return int(k), true
}
