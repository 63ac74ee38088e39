package main

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/linalg"
	"github.com/HershLalwani/qdeck/sim"
)

// snapshot is what a backend pair is compared on: the final matrix and, for
// density backends, the classical outcome distribution.
type snapshot struct {
	matrix   linalg.Matrix[linalg.Complex]
	outcomes map[string]float64
}

// difference is the largest absolute deviation between two snapshots.
func (s snapshot) difference(o snapshot) float64 {
	if s.matrix.Rows() != o.matrix.Rows() || s.matrix.Cols() != o.matrix.Cols() {
		return math.Inf(1)
	}
	worst := 0.0
	a, b := s.matrix.Data(), o.matrix.Data()
	for i := range a {
		worst = max(worst, cmplx.Abs(complex128(a[i])-complex128(b[i])))
	}
	for k, p := range s.outcomes {
		worst = max(worst, math.Abs(p-o.outcomes[k]))
	}
	for k, p := range o.outcomes {
		if _, ok := s.outcomes[k]; !ok {
			worst = max(worst, p)
		}
	}
	return worst
}

// compareBackends runs the numeric and the symbolic backend of the same
// family side by side. Circuits without measurements or resets compare
// unitaries; the rest compare enumerated density matrices.
func compareBackends(cmd *cobra.Command, args []string) error {
	sess, err := newSession(false)
	if err != nil {
		return err
	}
	defer sess.close()
	op, err := sess.load(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kinds := []sim.Kind{sim.UnitaryNumeric, sim.UnitarySymbolic}
	if !op.Unitary() {
		kinds = []sim.Kind{sim.DensityNumeric, sim.DensitySymbolic}
	}
	snaps, err := evaluateAll(ctx, sess, op, kinds)
	if err != nil {
		return err
	}

	diff := snaps[0].difference(snaps[1])
	sess.logger.Info("backends compared",
		zap.Stringer("numeric", kinds[0]),
		zap.Stringer("symbolic", kinds[1]),
		zap.Float64("difference", diff))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "numeric:  %s\nsymbolic: %s\nmax difference: %.3g\n", kinds[0], kinds[1], diff)
	if !(diff <= tolerance) {
		return errors.Errorf("backends disagree: difference %.3g exceeds tolerance %.3g", diff, tolerance)
	}
	fmt.Fprintln(out, "match")
	return nil
}

// evaluateAll runs op on each kind in its own goroutine. The first failure
// cancels the others.
func evaluateAll(ctx context.Context, sess *session, op circuit.Operation, kinds []sim.Kind) ([]snapshot, error) {
	snaps := make([]snapshot, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := evaluate(sess, kind, op)
			if err != nil {
				return errors.Wrapf(err, "%s backend", kind)
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

func evaluate(sess *session, kind sim.Kind, op circuit.Operation) (snapshot, error) {
	sm, err := sess.simulator(kind, op, sim.WithPolicy(sim.Enumerate))
	if err != nil {
		return snapshot{}, err
	}
	if err := sm.Run(op); err != nil {
		return snapshot{}, err
	}
	if !kind.Measures() {
		u, err := sm.Unitary()
		return snapshot{matrix: u}, err
	}
	rho, err := sm.DensityMatrix()
	if err != nil {
		return snapshot{}, err
	}
	outcomes, err := sm.Outcomes()
	if err != nil {
		return snapshot{}, err
	}
	snap := snapshot{matrix: rho, outcomes: make(map[string]float64, len(outcomes))}
	for _, o := range outcomes {
		snap.outcomes[bitString(o.Bits)] += o.Probability
	}
	return snap, nil
}
