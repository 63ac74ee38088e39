// Package config loads qdeck settings from YAML and builds the objects they
// describe.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/HershLalwani/qdeck/decompose"
	"github.com/HershLalwani/qdeck/sim"
)

// Config is the file format. Empty fields take their Default values when
// loaded.
type Config struct {
	Backend   string          `yaml:"backend"`
	Seed      *uint64         `yaml:"seed,omitempty"`
	Policy    string          `yaml:"policy"`
	Decompose DecomposeConfig `yaml:"decompose"`
	Log       LogConfig       `yaml:"log"`
}

type DecomposeConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxControls int  `yaml:"max_controls"`
	Ancillas    int  `yaml:"ancillas"`
	CacheSize   int  `yaml:"cache_size"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings: a numeric state vector, default
// measurement policy, no decomposition and warn-level production logs.
func Default() Config {
	return Config{
		Backend: sim.StateVector.String(),
		Policy:  sim.PolicyDefault.String(),
		Decompose: DecomposeConfig{
			MaxControls: 2,
			CacheSize:   decompose.DefaultCacheSize,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Write stores cfg at path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "config: create directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "config: marshal")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "config: write")
}

// Validate checks names and limits.
func (c Config) Validate() error {
	if _, err := sim.ParseKind(c.Backend); err != nil {
		return err
	}
	if _, err := sim.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log level")
	}
	d := c.Decompose
	switch {
	case d.MaxControls < 1:
		return errors.Errorf("config: decompose.max_controls must be at least 1, got %d", d.MaxControls)
	case d.Ancillas < 0:
		return errors.Errorf("config: decompose.ancillas must not be negative, got %d", d.Ancillas)
	case d.CacheSize < 1:
		return errors.Errorf("config: decompose.cache_size must be at least 1, got %d", d.CacheSize)
	}
	return nil
}

// Kind returns the configured backend. Call Validate first.
func (c Config) Kind() sim.Kind {
	k, _ := sim.ParseKind(c.Backend)
	return k
}

// MeasurementPolicy returns the configured policy. Call Validate first.
func (c Config) MeasurementPolicy() sim.Policy {
	p, _ := sim.ParsePolicy(c.Policy)
	return p
}

// Logger builds a zap logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "config: log level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "config: build logger")
	}
	return logger, nil
}

// Decomposer builds the configured decomposer, or nil when decomposition
// is disabled.
func (c Config) Decomposer(logger *zap.Logger, reg prometheus.Registerer) (*decompose.Decomposer, error) {
	if !c.Decompose.Enabled {
		return nil, nil
	}
	opts := []decompose.Option{decompose.WithCacheSize(c.Decompose.CacheSize)}
	if logger != nil {
		opts = append(opts, decompose.WithLogger(logger))
	}
	if reg != nil {
		opts = append(opts, decompose.WithMetrics(decompose.NewMetrics(reg)))
	}
	return decompose.New(c.Decompose.MaxControls, c.Decompose.Ancillas, opts...)
}

// SimOptions translates the settings into simulator options. The
// decomposer may be nil.
func (c Config) SimOptions(logger *zap.Logger, m *sim.Metrics, d *decompose.Decomposer) []sim.Option {
	opts := []sim.Option{sim.WithPolicy(c.MeasurementPolicy())}
	if c.Seed != nil {
		opts = append(opts, sim.WithSeed(*c.Seed))
	}
	if logger != nil {
		opts = append(opts, sim.WithLogger(logger))
	}
	if m != nil {
		opts = append(opts, sim.WithMetrics(m))
	}
	if d != nil {
		opts = append(opts, sim.WithDecomposer(d))
	}
	return opts
}
