package sim

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind selects the state representation and the arithmetic domain.
type Kind int

const (
	UnitaryNumeric Kind = iota
	UnitarySymbolic
	StateVector
	DensityNumeric
	DensitySymbolic
)

var kindNames = map[Kind]string{
	UnitaryNumeric:  "unitary",
	UnitarySymbolic: "unitary-symbolic",
	StateVector:     "statevector",
	DensityNumeric:  "density",
	DensitySymbolic: "density-symbolic",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Symbolic reports whether the backend computes over the exact domain.
func (k Kind) Symbolic() bool { return k == UnitarySymbolic || k == DensitySymbolic }

// Measures reports whether the backend supports measurement and reset.
func (k Kind) Measures() bool { return k == StateVector || k == DensityNumeric || k == DensitySymbolic }

// ParseKind parses the names printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("sim: unknown backend kind %q", s)
}

// Kinds lists every backend kind in declaration order.
func Kinds() []Kind {
	return []Kind{UnitaryNumeric, UnitarySymbolic, StateVector, DensityNumeric, DensitySymbolic}
}

// Policy decides how density backends treat measurement.
type Policy int

const (
	// PolicyDefault collapses numeric backends and enumerates symbolic ones.
	PolicyDefault Policy = iota
	// Collapse samples one outcome and renormalises.
	Collapse
	// Enumerate keeps one unnormalised branch per outcome.
	Enumerate
)

func (p Policy) String() string {
	switch p {
	case PolicyDefault:
		return "default"
	case Collapse:
		return "collapse"
	case Enumerate:
		return "enumerate"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PolicyDefault, nil
	case "collapse":
		return Collapse, nil
	case "enumerate":
		return Enumerate, nil
	}
	return 0, errors.Errorf("sim: unknown measurement policy %q", s)
}
