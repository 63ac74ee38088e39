package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath     string
	logLevel       string
	backendName    string // overrides backend from the config file
	policyName     string
	seed           int64 // negative keeps the configured seed
	decomposeFirst bool
	maxControls    int
	ancillas       int
	shots          int
	showMetrics    bool
	values         []string // name=value parameter bindings
	plain          bool
	asDiagram      bool
	tolerance      float64

	rootCmd = &cobra.Command{
		Use:   "qdeck",
		Short: "Simulate, draw and convert quantum circuits",
		Long: `qdeck reads OpenQASM programs and evaluates them on unitary,
state vector or density matrix backends, numerically or exactly.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run <file.qasm>",
		Short: "Run a circuit and print its result",
		Args:  cobra.ExactArgs(1),
		RunE:  runCircuit,
	}
	drawCmd = &cobra.Command{
		Use:   "draw <file.qasm>",
		Short: "Print a text diagram of a circuit",
		Args:  cobra.ExactArgs(1),
		RunE:  drawCircuit,
	}
	exportCmd = &cobra.Command{
		Use:   "export <file.qasm>",
		Short: "Rewrite a circuit as OpenQASM 3",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCircuit,
	}
	decomposeCmd = &cobra.Command{
		Use:   "decompose <file.qasm>",
		Short: "Replace multi-controlled gates and print the result",
		Args:  cobra.ExactArgs(1),
		RunE:  decomposeCircuit,
	}
	compareCmd = &cobra.Command{
		Use:   "compare <file.qasm>",
		Short: "Cross-check the numeric and symbolic backends",
		Args:  cobra.ExactArgs(1),
		RunE:  compareBackends,
	}
	viewCmd = &cobra.Command{
		Use:   "view <file.qasm>",
		Short: "Step through a circuit interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewCircuit,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	// backend selection is shared by everything that simulates
	for _, cmd := range []*cobra.Command{runCmd, viewCmd} {
		cmd.Flags().StringVar(&backendName, "backend", "", "Backend: unitary, unitary-symbolic, statevector, density, density-symbolic")
		cmd.Flags().StringVar(&policyName, "policy", "", "Measurement policy: default, collapse, enumerate")
		cmd.Flags().Int64Var(&seed, "seed", -1, "Seed for measurement sampling")
		cmd.Flags().StringArrayVar(&values, "set", nil, "Bind a named parameter, e.g. --set theta=pi/4")
	}
	for _, cmd := range []*cobra.Command{runCmd, viewCmd, compareCmd, exportCmd, drawCmd} {
		cmd.Flags().BoolVar(&decomposeFirst, "decompose", false, "Decompose multi-controlled gates first")
	}
	for _, cmd := range []*cobra.Command{runCmd, viewCmd, compareCmd, exportCmd, drawCmd, decomposeCmd} {
		cmd.Flags().IntVar(&maxControls, "max-controls", 0, "Largest control count left intact")
		cmd.Flags().IntVar(&ancillas, "ancillas", -1, "Ancilla budget for decomposition")
	}

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&shots, "shots", 1, "Number of repetitions on a collapsing backend")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print collected metrics after the run")

	rootCmd.AddCommand(drawCmd)
	drawCmd.Flags().BoolVar(&plain, "plain", false, "Draw without colours")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(decomposeCmd)
	decomposeCmd.Flags().BoolVar(&asDiagram, "draw", false, "Print a diagram instead of OpenQASM")

	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-9, "Largest accepted difference")
	compareCmd.Flags().StringArrayVar(&values, "set", nil, "Bind a named parameter, e.g. --set theta=pi/4")

	rootCmd.AddCommand(viewCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}
