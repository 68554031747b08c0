// Package config defines the slide aggregator configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/slide/internal/errors"
)

// Estimator selects the approximate quantile estimator implementation.
const (
	// EstimatorUniform is a fixed-range uniform-bin histogram.
	EstimatorUniform = "uniform"
	// EstimatorSketch is a DDSketch with relative-accuracy guarantees.
	EstimatorSketch = "ddsketch"
)

// Config represents the complete slide configuration.
type Config struct {
	// DataDir is the base directory under which each slide creates its own
	// uniquely named working directory.
	DataDir string `yaml:"data_dir"`

	// Window is the trailing duration statistics are computed over.
	// Must be a whole number of seconds, at least one.
	Window time.Duration `yaml:"window"`

	// Trigger is the staleness threshold for discarding retained buckets.
	// Must be >= Window. Zero defaults to Window.
	Trigger time.Duration `yaml:"trigger"`

	// Histogram configures the uniform estimator.
	Histogram HistogramConfig `yaml:"histogram"`

	// Estimator selects the approximate quantile estimator:
	// "uniform" (default) or "ddsketch".
	Estimator string `yaml:"estimator"`

	// SketchAccuracy is the DDSketch relative accuracy (0.01 = 1% error).
	SketchAccuracy float64 `yaml:"sketch_accuracy"`

	// Sort configures the external sorter used by exact quantile queries.
	Sort SortConfig `yaml:"sort"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// HistogramConfig configures the fixed-range uniform histogram.
type HistogramConfig struct {
	// Min is the inclusive lower bound of the tracked range.
	Min float64 `yaml:"min"`

	// Max is the exclusive upper bound of the tracked range.
	Max float64 `yaml:"max"`

	// Bins is the number of uniform bins.
	Bins int `yaml:"bins"`
}

// SortConfig configures the external sorter.
type SortConfig struct {
	// ChunkRecords is the number of records sorted in memory at once.
	// Zero selects the sorter default.
	ChunkRecords int `yaml:"chunk_records"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: os.TempDir(),
		Window:  60 * time.Second,
		Histogram: HistogramConfig{
			Min:  0,
			Max:  5_000_000,
			Bins: 20_000,
		},
		Estimator:      EstimatorUniform,
		SketchAccuracy: 0.01,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// WindowSeconds returns the window length in whole seconds.
func (c *Config) WindowSeconds() int64 {
	return int64(c.Window / time.Second)
}

// TriggerSeconds returns the trigger threshold in whole seconds, defaulting
// to the window when unset.
func (c *Config) TriggerSeconds() int64 {
	if c.Trigger == 0 {
		return c.WindowSeconds()
	}
	return int64(c.Trigger / time.Second)
}
