// Package slide maintains a disk-backed sliding time window of float64
// readings and answers statistical queries over it.
//
// Readings are appended to per-second bucket files inside a working
// directory private to each Slide. The window is a ring of window-many file
// slots keyed by moment modulo window, so disk usage is bounded by the write
// rate times the window length regardless of how long the slide runs.
// Queries aggregate the buckets whose owning second falls inside the
// trailing window: Sum and Mean stream every resident record, and Nines
// externally sorts them for exact order statistics. MeanAndNines instead
// selects buckets by file modification time and folds their records into a
// bounded-memory estimator.
//
// A Slide is safe for concurrent use. State does not survive a restart; a
// new Slide always starts from an empty window.
package slide

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xtxerr/slide/internal/aggregate"
	"github.com/xtxerr/slide/internal/bucket"
	"github.com/xtxerr/slide/internal/clock"
	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/config"
	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/export"
	"github.com/xtxerr/slide/internal/logging"
	"github.com/xtxerr/slide/internal/quantile"
	"github.com/xtxerr/slide/internal/types"
)

// Summary is the result of a counting aggregation.
type Summary = types.Summary

// Distribution is the result of a quantile query.
type Distribution = types.Distribution

// Option configures a Slide at construction time.
type Option func(*Slide)

// WithClock overrides the wall clock. Intended for tests that need to drive
// the window deterministically.
func WithClock(c clock.Clock) Option {
	return func(s *Slide) {
		s.clk = c
	}
}

// Slide is a sliding-window statistics aggregator over a private bucket
// directory.
type Slide struct {
	cfg   *config.Config
	store *bucket.Store
	clk   clock.Clock
	log   *slog.Logger
}

// New creates a Slide under a fresh uniquely named directory inside
// cfg.DataDir. A nil cfg selects the defaults.
func New(cfg *config.Config, opts ...Option) (*Slide, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	dir := filepath.Join(cfg.DataDir, "slide-"+uuid.NewString())
	store, err := bucket.NewStore(dir, cfg.WindowSeconds(), cfg.TriggerSeconds())
	if err != nil {
		return nil, errors.Wrap(err, "create bucket store")
	}

	s := &Slide{
		cfg:   cfg,
		store: store,
		clk:   clock.System(),
		log:   logging.Component("slide"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Debug("slide created",
		"dir", dir,
		"window_seconds", cfg.WindowSeconds(),
		"trigger_seconds", cfg.TriggerSeconds())

	return s, nil
}

// Update appends a reading at the current moment.
func (s *Slide) Update(v float64) error {
	return s.UpdateAt(s.clk.Now(), v)
}

// UpdateAt appends a reading to the bucket owning the given moment. The
// reading is clamped to codec.MaxMagnitude before encoding. Writing to a
// moment whose slot is owned by an older second discards that slot's
// previous contents.
func (s *Slide) UpdateAt(moment int64, v float64) error {
	rec := codec.EncodeRecord(v)
	return s.store.Write(moment, rec[:])
}

// Sum aggregates count, sum, and mean over the trailing seconds ending at
// the current moment.
func (s *Slide) Sum(ctx context.Context, seconds int64) (Summary, error) {
	return s.SumAt(ctx, s.clk.Now(), seconds)
}

// SumAt aggregates count, sum, and mean over the seconds-long span ending
// at moment. Only buckets owned by a second strictly newer than
// moment-seconds contribute.
func (s *Slide) SumAt(ctx context.Context, moment, seconds int64) (Summary, error) {
	buckets, err := s.window(moment, seconds)
	if err != nil {
		return Summary{}, err
	}
	return aggregate.Sum(ctx, s.store, buckets)
}

// Mean returns the mean reading over the trailing seconds. The boolean is
// false when the span holds no readings; the mean is undefined then, which
// is a no-data outcome rather than an error.
func (s *Slide) Mean(ctx context.Context, seconds int64) (float64, bool, error) {
	return s.MeanAt(ctx, s.clk.Now(), seconds)
}

// MeanAt returns the mean reading over the seconds-long span ending at
// moment, with false for an empty span.
func (s *Slide) MeanAt(ctx context.Context, moment, seconds int64) (float64, bool, error) {
	summary, err := s.SumAt(ctx, moment, seconds)
	if err != nil {
		return 0, false, err
	}
	if summary.IsEmpty() {
		return 0, false, nil
	}
	return summary.Mean, true, nil
}

// Nines computes exact median, 95th, 99th, and maximum over the trailing
// seconds by externally sorting every resident record.
func (s *Slide) Nines(ctx context.Context, seconds int64) (Distribution, error) {
	return s.NinesAt(ctx, s.clk.Now(), seconds)
}

// NinesAt computes exact order statistics over the seconds-long span ending
// at moment. The sort scratch file lives inside the slide directory and is
// removed before returning.
func (s *Slide) NinesAt(ctx context.Context, moment, seconds int64) (Distribution, error) {
	buckets, err := s.window(moment, seconds)
	if err != nil {
		return Distribution{}, err
	}
	return quantile.Nines(ctx, s.store.Dir(), buckets, s.cfg.Sort.ChunkRecords)
}

// MeanAndNines computes count, sum, mean, exact maximum, and estimated
// median, 95th, and 99th percentiles over the trailing seconds in a single
// streaming pass. Unlike the owning-moment selection of the other queries,
// buckets are selected by file modification time: any bucket written to
// within the trailing seconds contributes, regardless of the moment it is
// keyed by. The percentile estimator is selected by the configuration: a
// fixed-range uniform histogram or a DDSketch.
func (s *Slide) MeanAndNines(ctx context.Context, seconds int64) (Distribution, error) {
	if seconds < 1 || seconds > s.store.Window() {
		return Distribution{}, errors.Wrapf(errors.ErrInvalidWindow,
			"query span %d outside [1, %d]", seconds, s.store.Window())
	}

	buckets, err := s.store.SelectByModTime(time.Now(), seconds)
	if err != nil {
		return Distribution{}, err
	}

	est, err := s.newEstimator()
	if err != nil {
		return Distribution{}, err
	}
	return quantile.MeanAndNines(ctx, s.store, buckets, est)
}

// Snapshot runs both quantile engines over the trailing seconds and writes
// the results as rows of a new Parquet file at path.
func (s *Slide) Snapshot(ctx context.Context, path string, seconds int64) error {
	moment := s.clk.Now()

	exact, err := s.NinesAt(ctx, moment, seconds)
	if err != nil {
		return errors.Wrap(err, "exact snapshot")
	}
	approx, err := s.MeanAndNines(ctx, seconds)
	if err != nil {
		return errors.Wrap(err, "approx snapshot")
	}

	rows := []export.Row{
		export.FromDistribution(exact, export.SourceExact, moment, seconds),
		export.FromDistribution(approx, export.SourceApprox, moment, seconds),
	}
	if err := export.WriteAll(path, rows); err != nil {
		return err
	}

	s.log.Info("snapshot written", "path", path, "rows", len(rows))
	return nil
}

// Dir returns the slide's private working directory.
func (s *Slide) Dir() string {
	return s.store.Dir()
}

// Stats returns cumulative write-path counters.
func (s *Slide) Stats() bucket.Stats {
	return s.store.Stats()
}

// Close closes the open bucket file. Further updates fail; the directory is
// left in place.
func (s *Slide) Close() error {
	return s.store.Close()
}

// Destroy closes the slide and removes its working directory.
func (s *Slide) Destroy() error {
	return s.store.Destroy()
}

// window validates the query span and selects the buckets owned by a second
// strictly inside (moment-seconds, moment].
func (s *Slide) window(moment, seconds int64) ([]bucket.Info, error) {
	if moment < 0 {
		return nil, errors.ErrInvalidMoment
	}
	if seconds < 1 || seconds > s.store.Window() {
		return nil, errors.Wrapf(errors.ErrInvalidWindow,
			"query span %d outside [1, %d]", seconds, s.store.Window())
	}
	return s.store.Select(moment - seconds)
}

// newEstimator builds the configured percentile estimator. Estimators are
// single-use; one is built per MeanAndNines call.
func (s *Slide) newEstimator() (quantile.Estimator, error) {
	if s.cfg.Estimator == config.EstimatorSketch {
		return quantile.NewSketchEstimator(s.cfg.SketchAccuracy)
	}
	h := s.cfg.Histogram
	return quantile.NewHistogramEstimator(h.Min, h.Max, h.Bins)
}
