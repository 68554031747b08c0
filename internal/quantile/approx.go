package quantile

import (
	"context"

	"github.com/xtxerr/slide/internal/bucket"
	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/types"
)

// Reader reads a bucket file fully into memory.
type Reader interface {
	ReadAll(path string) ([]byte, error)
}

// MeanAndNines folds every record in the given buckets into the estimator
// and derives mean and approximate quantiles from it. Count, sum, and the
// observed maximum are tracked exactly; only the 50/95/99th percentiles
// carry estimator error. Memory is constant in the number of readings.
func MeanAndNines(ctx context.Context, r Reader, buckets []bucket.Info, est Estimator) (types.Distribution, error) {
	var (
		count int64
		sum   float64
		max   float64
	)

	for _, b := range buckets {
		if err := ctx.Err(); err != nil {
			return types.Distribution{}, err
		}

		data, err := r.ReadAll(b.Path)
		if err != nil {
			return types.Distribution{}, err
		}

		var addErr error
		err = codec.DecodeAll(data, func(v float64) {
			if addErr != nil {
				return
			}
			if err := est.Add(v); err != nil {
				addErr = err
				return
			}
			count++
			sum += v
			if count == 1 || v > max {
				max = v
			}
		})
		if err != nil {
			return types.Distribution{}, errors.Wrapf(err, "bucket %d", b.Slot)
		}
		if addErr != nil {
			return types.Distribution{}, errors.Wrapf(addErr, "bucket %d", b.Slot)
		}
	}

	if count == 0 {
		return types.Distribution{}, nil
	}

	dist := types.Distribution{
		Count: count,
		Sum:   sum,
		Mean:  sum / float64(count),
	}

	p50, err := est.Quantile(0.50)
	if err != nil {
		return types.Distribution{}, err
	}
	p95, err := est.Quantile(0.95)
	if err != nil {
		return types.Distribution{}, err
	}
	p99, err := est.Quantile(0.99)
	if err != nil {
		return types.Distribution{}, err
	}

	dist.SetQuantiles(p50, p95, p99, max)
	return dist, nil
}
