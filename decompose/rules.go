package decompose

import (
	"math"

	"github.com/HershLalwani/qdeck/circuit"
)

// normalised expresses a single-qubit gate G as before, then a gate with
// square root root, then after. Conjugating uncontrolled gates commute with
// the controls, so C(G) = after · C(root²) · before.
type normalised struct {
	before []circuit.Operation
	root   *circuit.Gate
	after  []circuit.Operation
}

func phaseRoot(theta float64) *circuit.Gate {
	return circuit.Phase(circuit.Angle(theta / 2))
}

func normalise(g *circuit.Gate) (normalised, error) {
	sign := 1.0
	if g.Dagger() {
		sign = -1
	}
	switch g.Mnemonic() {
	case "id":
		return normalised{}, nil
	case "x":
		return normalised{
			before: []circuit.Operation{circuit.H()},
			root:   phaseRoot(math.Pi),
			after:  []circuit.Operation{circuit.H()},
		}, nil
	case "y":
		// Y = S X S†
		return normalised{
			before: []circuit.Operation{circuit.Sdg(), circuit.H()},
			root:   phaseRoot(math.Pi),
			after:  []circuit.Operation{circuit.H(), circuit.S()},
		}, nil
	case "sx":
		// SX = H S H, and its adjoint is H S† H
		return normalised{
			before: []circuit.Operation{circuit.H()},
			root:   phaseRoot(sign * math.Pi / 2),
			after:  []circuit.Operation{circuit.H()},
		}, nil
	case "z":
		return normalised{root: phaseRoot(math.Pi)}, nil
	case "s":
		return normalised{root: phaseRoot(sign * math.Pi / 2)}, nil
	case "t":
		return normalised{root: phaseRoot(sign * math.Pi / 4)}, nil
	case "p", "rx", "ry", "rz":
		p := g.Params()[0].Scaled(sign / 2)
		root, err := circuit.NewGate(g.Mnemonic(), p)
		if err != nil {
			return normalised{}, err
		}
		return normalised{root: root}, nil
	}
	return normalised{}, &Error{Op: g.Name(), Reason: "no ancilla-free decomposition for this gate; allow more ancillas"}
}
