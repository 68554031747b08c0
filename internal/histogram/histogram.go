// Package histogram implements a fixed-range uniform-bin histogram for
// bounded-memory quantile estimation.
//
// Memory is constant in the number of readings; the cost is bin-granularity
// quantile error. Quantiles are reported as the upper edge of the bin
// containing the target rank, clamped to the exact observed maximum.
package histogram

import (
	"math"

	"github.com/xtxerr/slide/internal/errors"
)

// Histogram counts readings into uniform bins over [min, max). Readings
// outside the range are folded into the first or last bin.
type Histogram struct {
	min   float64
	max   float64
	width float64
	bins  []int64

	count   int64
	sum     float64
	maxSeen float64
}

// New creates a histogram over [min, max) with the given number of bins.
func New(min, max float64, bins int) (*Histogram, error) {
	if bins <= 0 {
		return nil, errors.NewInvalidValue("bins", bins, "must be positive")
	}
	if !(max > min) {
		return nil, errors.NewInvalidValue("range", max, "max must exceed min")
	}

	return &Histogram{
		min:   min,
		max:   max,
		width: (max - min) / float64(bins),
		bins:  make([]int64, bins),
	}, nil
}

// Add folds one reading into the histogram.
func (h *Histogram) Add(v float64) {
	idx := int((v - h.min) / h.width)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.bins) {
		idx = len(h.bins) - 1
	}
	h.bins[idx]++

	h.count++
	h.sum += v
	if h.count == 1 || v > h.maxSeen {
		h.maxSeen = v
	}
}

// Count returns the number of readings added.
func (h *Histogram) Count() int64 {
	return h.count
}

// Sum returns the arithmetic total of all readings.
func (h *Histogram) Sum() float64 {
	return h.sum
}

// Mean returns the exact mean. Meaningful only when Count > 0.
func (h *Histogram) Mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Max returns the exact observed maximum. Meaningful only when Count > 0.
func (h *Histogram) Max() float64 {
	return h.maxSeen
}

// Quantile estimates the value at quantile q in (0, 1]. Returns zero when
// no readings were added; callers gate on Count for the no-data case.
func (h *Histogram) Quantile(q float64) (float64, error) {
	if q <= 0 || q > 1 {
		return 0, errors.ErrInvalidQuantile
	}
	if h.count == 0 {
		return 0, nil
	}

	rank := int64(math.Ceil(q * float64(h.count)))

	var cum int64
	for i, n := range h.bins {
		cum += n
		if cum >= rank {
			edge := h.min + float64(i+1)*h.width
			if edge > h.maxSeen {
				edge = h.maxSeen
			}
			return edge, nil
		}
	}

	return h.maxSeen, nil
}
