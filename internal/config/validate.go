package config

import (
	"time"

	"github.com/xtxerr/slide/internal/errors"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.NewMissingField("data_dir"))
	}

	if c.Window < time.Second {
		errs = append(errs, errors.ErrInvalidWindow)
	} else if c.Window%time.Second != 0 {
		errs = append(errs, errors.NewInvalidValue("window", c.Window, "must be whole seconds"))
	}

	if c.Trigger != 0 {
		if c.Trigger < c.Window {
			errs = append(errs, errors.ErrInvalidTrigger)
		} else if c.Trigger%time.Second != 0 {
			errs = append(errs, errors.NewInvalidValue("trigger", c.Trigger, "must be whole seconds"))
		}
	}

	if err := c.Histogram.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "histogram"))
	}

	switch c.Estimator {
	case EstimatorUniform, EstimatorSketch:
	case "":
		errs = append(errs, errors.NewMissingField("estimator"))
	default:
		errs = append(errs, errors.NewInvalidValue("estimator", c.Estimator, "must be uniform or ddsketch"))
	}

	if c.Estimator == EstimatorSketch {
		if c.SketchAccuracy <= 0 || c.SketchAccuracy >= 1 {
			errs = append(errs, errors.NewInvalidValue("sketch_accuracy", c.SketchAccuracy, "must be in (0, 1)"))
		}
	}

	if c.Sort.ChunkRecords < 0 {
		errs = append(errs, errors.NewInvalidValue("sort.chunk_records", c.Sort.ChunkRecords, "must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the histogram configuration.
func (h *HistogramConfig) Validate() error {
	var errs []error

	if h.Bins <= 0 {
		errs = append(errs, errors.NewInvalidValue("bins", h.Bins, "must be positive"))
	}
	if h.Max <= h.Min {
		errs = append(errs, errors.NewInvalidValue("max", h.Max, "must exceed min"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
