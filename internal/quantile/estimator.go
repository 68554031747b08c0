package quantile

import (
	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/histogram"
)

// Estimator is a bounded-memory streaming quantile estimator.
type Estimator interface {
	Add(v float64) error
	Quantile(q float64) (float64, error)
}

// histogramEstimator estimates quantiles with a fixed-range uniform-bin
// histogram; error is bounded by the bin width.
type histogramEstimator struct {
	h *histogram.Histogram
}

// NewHistogramEstimator creates the default estimator: a uniform histogram
// over [min, max) with the given number of bins.
func NewHistogramEstimator(min, max float64, bins int) (Estimator, error) {
	h, err := histogram.New(min, max, bins)
	if err != nil {
		return nil, err
	}
	return &histogramEstimator{h: h}, nil
}

func (e *histogramEstimator) Add(v float64) error {
	e.h.Add(v)
	return nil
}

func (e *histogramEstimator) Quantile(q float64) (float64, error) {
	return e.h.Quantile(q)
}

// sketchEstimator estimates quantiles with a DDSketch; error is relative to
// the value rather than fixed per bin, which suits wide dynamic ranges.
type sketchEstimator struct {
	sketch *ddsketch.DDSketch
}

// NewSketchEstimator creates a DDSketch-backed estimator with the given
// relative accuracy (0.01 = 1% error).
func NewSketchEstimator(relativeAccuracy float64) (Estimator, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(relativeAccuracy)
	if err != nil {
		return nil, errors.Wrap(err, "create ddsketch")
	}
	return &sketchEstimator{sketch: sketch}, nil
}

func (e *sketchEstimator) Add(v float64) error {
	return e.sketch.Add(v)
}

func (e *sketchEstimator) Quantile(q float64) (float64, error) {
	v, err := e.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0, errors.Wrap(err, "ddsketch quantile")
	}
	return v, nil
}
