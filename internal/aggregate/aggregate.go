// Package aggregate computes count, sum, and mean over bucket files.
package aggregate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/slide/internal/bucket"
	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/types"
)

// maxConcurrentReads bounds how many bucket files are decoded in parallel.
const maxConcurrentReads = 4

// Reader reads a bucket file fully into memory.
type Reader interface {
	ReadAll(path string) ([]byte, error)
}

// Sum decodes every record in the given buckets and accumulates count and
// arithmetic total. Buckets are decoded concurrently. The mean is populated
// when at least one record was seen; callers check Summary.IsEmpty for the
// no-data outcome.
func Sum(ctx context.Context, r Reader, buckets []bucket.Info) (types.Summary, error) {
	var (
		mu      sync.Mutex
		summary types.Summary
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for _, b := range buckets {
		b := b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := r.ReadAll(b.Path)
			if err != nil {
				return err
			}

			var count int64
			var total float64
			if err := codec.DecodeAll(data, func(v float64) {
				count++
				total += v
			}); err != nil {
				return errors.Wrapf(err, "bucket %d", b.Slot)
			}

			mu.Lock()
			summary.Count += count
			summary.Sum += total
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.Summary{}, err
	}

	if summary.Count > 0 {
		summary.Mean = summary.Sum / float64(summary.Count)
	}
	return summary, nil
}
