package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/internal/config"
	"github.com/HershLalwani/qdeck/qasm"
	"github.com/HershLalwani/qdeck/render"
)

func drawCircuit(cmd *cobra.Command, args []string) error {
	return convert(cmd, args[0], false, func(w io.Writer, op circuit.Operation) error {
		return writeDiagram(w, op, !plain)
	})
}

func exportCircuit(cmd *cobra.Command, args []string) error {
	return convert(cmd, args[0], false, writeQASM)
}

// decomposeCircuit always decomposes, so the output only holds controlled
// gates within the control limit.
func decomposeCircuit(cmd *cobra.Command, args []string) error {
	write := writeQASM
	if asDiagram {
		write = func(w io.Writer, op circuit.Operation) error {
			return writeDiagram(w, op, false)
		}
	}
	return convert(cmd, args[0], true, write)
}

func convert(cmd *cobra.Command, path string, forceDecompose bool, write func(io.Writer, circuit.Operation) error) error {
	sess, err := newSession(forceDecompose)
	if err != nil {
		return err
	}
	defer sess.close()
	op, err := sess.load(path)
	if err != nil {
		return err
	}
	return write(cmd.OutOrStdout(), op)
}

func writeDiagram(w io.Writer, op circuit.Operation, color bool) error {
	var opts []render.Option
	if color {
		opts = append(opts, render.WithStyles(render.DefaultStyles()))
	}
	s, err := render.Draw(op, opts...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func writeQASM(w io.Writer, op circuit.Operation) error {
	s, err := qasm.Export(op)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "qdeck.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
