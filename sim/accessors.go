package sim

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/linalg"
)

// Outcome is one classical register value and its probability.
type Outcome struct {
	Bits        []bool
	Probability float64
}

// ExactOutcome is an Outcome with an exact probability.
type ExactOutcome struct {
	Bits        []bool
	Probability linalg.Exact
}

// Unitary returns the accumulated matrix of a unitary backend.
func (s *Simulator) Unitary() (linalg.Matrix[linalg.Complex], error) {
	switch b := s.backend.(type) {
	case *unitary[linalg.Complex]:
		return b.u.Clone(), nil
	case *unitary[linalg.Exact]:
		return linalg.ToComplex(b.u), nil
	}
	return linalg.Matrix[linalg.Complex]{}, errors.Wrapf(ErrWrongBackend, "unitary of %s", s.env.kind)
}

// ExactUnitary returns the accumulated matrix of the symbolic unitary
// backend.
func (s *Simulator) ExactUnitary() (linalg.Matrix[linalg.Exact], error) {
	if b, ok := s.backend.(*unitary[linalg.Exact]); ok {
		return b.u.Clone(), nil
	}
	return linalg.Matrix[linalg.Exact]{}, errors.Wrapf(ErrWrongBackend, "exact unitary of %s", s.env.kind)
}

// State returns the amplitudes of the state vector backend.
func (s *Simulator) State() ([]complex128, error) {
	b, ok := s.backend.(*stateVector)
	if !ok {
		return nil, errors.Wrapf(ErrWrongBackend, "state vector of %s", s.env.kind)
	}
	out := make([]complex128, len(b.psi))
	for i, a := range b.psi {
		out[i] = complex128(a)
	}
	return out, nil
}

// DensityMatrix returns the density matrix of the register. For enumerated
// measurements it is the sum over all branches.
func (s *Simulator) DensityMatrix() (linalg.Matrix[linalg.Complex], error) {
	switch b := s.backend.(type) {
	case *stateVector:
		return b.density(), nil
	case *density[linalg.Complex]:
		return b.mixture(), nil
	case *density[linalg.Exact]:
		return linalg.ToComplex(b.mixture()), nil
	}
	return linalg.Matrix[linalg.Complex]{}, errors.Wrapf(ErrWrongBackend, "density matrix of %s", s.env.kind)
}

// ExactDensityMatrix returns the density matrix of the symbolic density
// backend.
func (s *Simulator) ExactDensityMatrix() (linalg.Matrix[linalg.Exact], error) {
	if b, ok := s.backend.(*density[linalg.Exact]); ok {
		return b.mixture(), nil
	}
	return linalg.Matrix[linalg.Exact]{}, errors.Wrapf(ErrWrongBackend, "exact density matrix of %s", s.env.kind)
}

// ReducedDensity traces out every wire not in keep. Wire j of the result is
// keep[j].
func (s *Simulator) ReducedDensity(keep []int) (linalg.Matrix[linalg.Complex], error) {
	rho, err := s.DensityMatrix()
	if err != nil {
		return rho, err
	}
	return linalg.PartialTrace(rho, s.env.n, keep)
}

// ExactReducedDensity is ReducedDensity over the exact domain.
func (s *Simulator) ExactReducedDensity(keep []int) (linalg.Matrix[linalg.Exact], error) {
	rho, err := s.ExactDensityMatrix()
	if err != nil {
		return rho, err
	}
	return linalg.PartialTrace(rho, s.env.n, keep)
}

// Probabilities returns the marginal distribution of the given wires, with
// keep[0] as the most significant bit of the outcome index.
func (s *Simulator) Probabilities(keep []int) ([]float64, error) {
	switch b := s.backend.(type) {
	case *stateVector:
		return linalg.PartialDiagonal(b.probabilities(), s.env.n, keep)
	case *density[linalg.Complex], *density[linalg.Exact]:
		rho, err := s.ReducedDensity(keep)
		if err != nil {
			return nil, err
		}
		out := make([]float64, rho.Rows())
		for i := range out {
			out[i] = max(real(complex128(rho.At(i, i))), 0)
		}
		normalise(out)
		return out, nil
	}
	return nil, errors.Wrapf(ErrWrongBackend, "probabilities of %s", s.env.kind)
}

// ClassicalBits returns the classical register. Enumerated branches that
// disagree yield ErrAmbiguousBits.
func (s *Simulator) ClassicalBits() ([]bool, error) {
	return s.backend.classical()
}

// Outcomes lists the classical register values the simulator may hold with
// their probabilities. Only enumerating density backends return more than
// one.
func (s *Simulator) Outcomes() ([]Outcome, error) {
	switch b := s.backend.(type) {
	case *density[linalg.Complex]:
		return outcomes(b), nil
	case *density[linalg.Exact]:
		return outcomes(b), nil
	}
	bits, err := s.backend.classical()
	if err != nil {
		return nil, err
	}
	return []Outcome{{Bits: bits, Probability: 1}}, nil
}

func outcomes[T linalg.Scalar[T]](b *density[T]) []Outcome {
	out := make([]Outcome, len(b.branches))
	for i, br := range b.branches {
		out[i] = Outcome{
			Bits:        slices.Clone(br.bits),
			Probability: real(br.rho.Trace().Complex()),
		}
	}
	return out
}

// ExactOutcomes is Outcomes for the symbolic density backend.
func (s *Simulator) ExactOutcomes() ([]ExactOutcome, error) {
	b, ok := s.backend.(*density[linalg.Exact])
	if !ok {
		return nil, errors.Wrapf(ErrWrongBackend, "exact outcomes of %s", s.env.kind)
	}
	out := make([]ExactOutcome, len(b.branches))
	for i, br := range b.branches {
		out[i] = ExactOutcome{Bits: slices.Clone(br.bits), Probability: br.rho.Trace()}
	}
	return out, nil
}
