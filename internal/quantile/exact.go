// Package quantile computes rank-based quantiles (median, 95th, 99th,
// maximum) over bucket files.
//
// Two complementary paths are provided: an exact computation that externally
// sorts every resident record and reads order statistics by byte offset, and
// an approximate streaming computation that folds records into a
// bounded-memory estimator.
package quantile

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/xtxerr/slide/internal/bucket"
	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/extsort"
	"github.com/xtxerr/slide/internal/types"
)

// targets are the quantiles reported by Nines, in output order.
var targets = [4]float64{0.50, 0.95, 0.99, 1.00}

// Nines computes exact order statistics over every record in the given
// buckets by externally sorting them into a scratch file inside dir and
// reading the target ranks by byte offset.
//
// The scratch file is uniquely named per invocation (concurrent calls on the
// same slide do not collide), carries a reserved leading slot so that
// count = size/12 - 1 and offset rank*12 addresses the rank-th smallest
// record, and is removed before returning.
func Nines(ctx context.Context, dir string, buckets []bucket.Info, chunkRecords int) (types.Distribution, error) {
	if err := ctx.Err(); err != nil {
		return types.Distribution{}, err
	}

	inputs := make([]string, len(buckets))
	for i, b := range buckets {
		inputs[i] = b.Path
	}

	scratch := filepath.Join(dir, fmt.Sprintf("-sorted-%s", uuid.NewString()))
	if err := extsort.New(dir, chunkRecords).Sort(inputs, scratch); err != nil {
		return types.Distribution{}, errors.Wrap(err, "sort records")
	}
	defer os.Remove(scratch)

	info, err := os.Stat(scratch)
	if err != nil {
		return types.Distribution{}, errors.Wrap(err, "stat sorted records")
	}

	count := info.Size()/codec.RecordSize - 1
	if count <= 0 {
		return types.Distribution{}, nil
	}

	f, err := os.Open(scratch)
	if err != nil {
		return types.Distribution{}, errors.Wrap(err, "open sorted records")
	}
	defer f.Close()

	var values [4]float64
	buf := make([]byte, codec.RecordSize)
	for i, q := range targets {
		rank := int64(math.Ceil(float64(count) * q))
		if _, err := f.ReadAt(buf, rank*codec.RecordSize); err != nil {
			return types.Distribution{}, errors.Wrapf(err, "read rank %d", rank)
		}
		v, err := codec.DecodeRecord(buf)
		if err != nil {
			return types.Distribution{}, errors.Wrapf(err, "decode rank %d", rank)
		}
		values[i] = v
	}

	dist := types.Distribution{Count: count}
	dist.SetQuantiles(values[0], values[1], values[2], values[3])
	return dist, nil
}
