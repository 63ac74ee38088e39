package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
	"github.com/HershLalwani/qdeck/decompose"
	"github.com/HershLalwani/qdeck/internal/config"
	"github.com/HershLalwani/qdeck/qasm"
	"github.com/HershLalwani/qdeck/sim"
)

// session holds what every command builds from the config file and the
// flags.
type session struct {
	cfg        config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *sim.Metrics
	decomposer *decompose.Decomposer // nil when decomposition is off
	values     map[string]float64
}

// newSession loads the configuration, applies flag overrides and builds the
// logger, metrics and decomposer. forceDecompose turns decomposition on
// regardless of the file.
func newSession(forceDecompose bool) (*session, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	if policyName != "" {
		cfg.Policy = policyName
	}
	if seed >= 0 {
		s := uint64(seed)
		cfg.Seed = &s
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if forceDecompose || decomposeFirst {
		cfg.Decompose.Enabled = true
	}
	if maxControls > 0 {
		cfg.Decompose.MaxControls = maxControls
	}
	if ancillas >= 0 {
		cfg.Decompose.Ancillas = ancillas
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	d, err := cfg.Decomposer(logger, reg)
	if err != nil {
		return nil, err
	}
	vals, err := parseValues(values)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:        cfg,
		logger:     logger,
		registry:   reg,
		metrics:    sim.NewMetrics(reg),
		decomposer: d,
		values:     vals,
	}, nil
}

func (s *session) close() { _ = s.logger.Sync() }

// load parses a QASM file and, when decomposition is on, rewrites it.
func (s *session) load(path string) (circuit.Operation, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit")
	}
	seq, err := qasm.Parse(string(src))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("circuit loaded",
		zap.String("path", path),
		zap.Int("qubits", seq.NumQubits()),
		zap.Int("bits", seq.NumBits()),
		zap.Int("steps", seq.Len()))
	if s.decomposer == nil {
		return seq, nil
	}
	op, err := s.decomposer.Rewrite(seq)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("circuit decomposed", zap.Int("ancillas", circuit.AncillaCount(op)))
	return op, nil
}

// simulator builds a simulator of the given kind sized for op, with
// algorithm defaults and --set bindings in place.
func (s *session) simulator(kind sim.Kind, op circuit.Operation, extra ...sim.Option) (*sim.Simulator, error) {
	opts := append(s.cfg.SimOptions(s.logger, s.metrics, s.decomposer), extra...)
	sm, err := sim.New(kind, op.NumQubits()+circuit.AncillaCount(op), op.NumBits(), opts...)
	if err != nil {
		return nil, err
	}
	if err := sm.Prepare(op); err != nil {
		return nil, err
	}
	for name, v := range s.values {
		sm.SetValue(name, v)
	}
	return sm, nil
}

// parseValues reads name=value pairs. Values accept pi expressions.
func parseValues(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("bad binding %q, want name=value", p)
		}
		v, err := circuit.ParseAngle(val)
		if err != nil {
			return nil, errors.Wrapf(err, "binding %s", name)
		}
		out[name] = v
	}
	return out, nil
}
