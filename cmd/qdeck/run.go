package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/sim"
)

// probabilityFloor hides basis states that are zero up to rounding.
const probabilityFloor = 1e-12

func runCircuit(cmd *cobra.Command, args []string) error {
	sess, err := newSession(false)
	if err != nil {
		return err
	}
	defer sess.close()

	op, err := sess.load(args[0])
	if err != nil {
		return err
	}
	kind := sess.cfg.Kind()
	sm, err := sess.simulator(kind, op)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend: %s (%s)\n", kind, sm.Policy())

	switch {
	case !kind.Measures():
		if err := sm.Run(op); err != nil {
			return err
		}
		if err := printUnitary(out, sm); err != nil {
			return err
		}
	case sm.Policy() == sim.Enumerate:
		if err := sm.Run(op); err != nil {
			return err
		}
		if err := printOutcomes(out, sm); err != nil {
			return err
		}
		if err := printProbabilities(out, sm, op.NumQubits()); err != nil {
			return err
		}
	default:
		if err := runShots(out, sm, op); err != nil {
			return err
		}
	}

	sess.logger.Info("run finished",
		zap.String("circuit", args[0]),
		zap.Stringer("backend", kind),
		zap.Int("shots", shots))

	if showMetrics {
		families, err := sess.registry.Gather()
		if err != nil {
			return errors.Wrap(err, "gather metrics")
		}
		return writeMetrics(out, families)
	}
	return nil
}

// runShots repeats a collapsing run and tallies the classical register. A
// single shot also prints the final distribution over the qubits.
func runShots(out io.Writer, sm *sim.Simulator, op circuit.Operation) error {
	if shots < 1 {
		return errors.Errorf("--shots must be at least 1, got %d", shots)
	}
	counts := make(map[string]int)
	for i := range shots {
		if i > 0 {
			sm.Reset()
		}
		if err := sm.Run(op); err != nil {
			return errors.Wrapf(err, "shot %d", i)
		}
		bits, err := sm.ClassicalBits()
		if err != nil {
			return err
		}
		counts[bitString(bits)]++
	}
	if shots == 1 {
		if err := printProbabilities(out, sm, op.NumQubits()); err != nil {
			return err
		}
	}
	if sm.Bits() == 0 {
		return nil
	}
	fmt.Fprintln(out, "counts:")
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(out, "  %s  %d  %.4f\n", k, counts[k], float64(counts[k])/float64(shots))
	}
	return nil
}

func printUnitary(out io.Writer, sm *sim.Simulator) error {
	fmt.Fprintln(out, "unitary:")
	if sm.Kind().Symbolic() {
		u, err := sm.ExactUnitary()
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, u.String())
		return err
	}
	u, err := sm.Unitary()
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, u.String())
	return err
}

func printOutcomes(out io.Writer, sm *sim.Simulator) error {
	if sm.Bits() == 0 {
		return nil
	}
	fmt.Fprintln(out, "outcomes:")
	if sm.Kind().Symbolic() {
		outcomes, err := sm.ExactOutcomes()
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			fmt.Fprintf(out, "  %s  %s\n", bitString(o.Bits), o.Probability)
		}
		return nil
	}
	outcomes, err := sm.Outcomes()
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %s  %.6f\n", bitString(o.Bits), o.Probability)
	}
	return nil
}

// printProbabilities lists the nonzero basis states of the first n qubits.
// Ancillas are traced out.
func printProbabilities(out io.Writer, sm *sim.Simulator, n int) error {
	probs, err := sm.Probabilities(span(0, n))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "probabilities:")
	for i, p := range probs {
		if p < probabilityFloor {
			continue
		}
		fmt.Fprintf(out, "  |%s⟩  %.6f\n", basisLabel(i, n), p)
	}
	return nil
}

// writeMetrics prints metric families in the Prometheus text format.
func writeMetrics(out io.Writer, families []*dto.MetricFamily) error {
	fmt.Fprintln(out, "metrics:")
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return errors.Wrapf(err, "write metric %s", mf.GetName())
		}
	}
	return nil
}

// basisLabel writes index i as n bits, qubit 0 first.
func basisLabel(i, n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%0*b", n, i)
}

// bitString writes a classical register, bit 0 first.
func bitString(bits []bool) string {
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

func span(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}
