// slidebench feeds a slide with synthetic readings and reports window
// statistics at a fixed interval. It exists to exercise the full write and
// query path against a real disk.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtxerr/slide"
	"github.com/xtxerr/slide/internal/config"
	"github.com/xtxerr/slide/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "config file path (optional)")
	dataDir := flag.String("data-dir", "", "bucket directory root (overrides config)")
	window := flag.Duration("window", 0, "window length (overrides config)")
	estimator := flag.String("estimator", "", "approximate estimator: uniform or ddsketch")
	rate := flag.Int("rate", 1000, "synthetic readings per second")
	report := flag.Duration("report", 5*time.Second, "report interval")
	exact := flag.Bool("exact", false, "use the exact quantile engine in reports")
	snapshot := flag.String("snapshot", "", "write a Parquet snapshot here on shutdown")
	flag.Parse()

	// Load config
	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
		cfg = loaded
	}

	// CLI overrides
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *window != 0 {
		cfg.Window = *window
	}
	if *estimator != "" {
		cfg.Estimator = *estimator
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	logging.Info("slidebench starting",
		"version", Version,
		"window", cfg.Window,
		"estimator", cfg.Estimator,
		"rate", *rate)

	s, err := slide.New(cfg)
	if err != nil {
		log.Fatalf("Create slide: %v", err)
	}
	defer s.Destroy()

	logging.Info("slide ready", "dir", s.Dir())

	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logging.Info("shutting down")
		cancel()
	}()

	if *rate < 1 {
		log.Fatalf("rate must be at least 1, got %d", *rate)
	}

	// Feed synthetic readings. Values follow a long-tailed distribution so
	// the p99 actually separates from the median.
	feed := time.NewTicker(time.Second / time.Duration(*rate))
	defer feed.Stop()

	reports := time.NewTicker(*report)
	defer reports.Stop()

	seconds := cfg.WindowSeconds()

	for {
		select {
		case <-ctx.Done():
			if *snapshot != "" {
				if err := s.Snapshot(context.Background(), *snapshot, seconds); err != nil {
					logging.Error("snapshot failed", "error", err)
				} else {
					logging.Info("snapshot written", "path", *snapshot)
				}
			}
			stats := s.Stats()
			logging.Info("final stats",
				"records", stats.RecordsWritten,
				"bytes", stats.BytesWritten,
				"rotations", stats.Rotations,
				"pruned", stats.FilesPruned)
			return

		case <-feed.C:
			v := rand.ExpFloat64() * 1000
			if err := s.Update(v); err != nil {
				logging.Error("update failed", "error", err)
			}

		case <-reports.C:
			reportWindow(ctx, s, seconds, *exact)
		}
	}
}

func reportWindow(ctx context.Context, s *slide.Slide, seconds int64, exact bool) {
	if exact {
		d, err := s.Nines(ctx, seconds)
		if err != nil {
			logging.Error("nines failed", "error", err)
			return
		}
		logDistribution("exact", d)
		return
	}

	d, err := s.MeanAndNines(ctx, seconds)
	if err != nil {
		logging.Error("mean-and-nines failed", "error", err)
		return
	}
	logDistribution("approx", d)
}

func logDistribution(engine string, d slide.Distribution) {
	if d.IsEmpty() {
		logging.Info("window empty", "engine", engine)
		return
	}

	args := []any{
		"engine", engine,
		"count", d.Count,
		"sum", d.Sum,
		"mean", d.Mean,
	}
	if d.HasQuantiles() {
		args = append(args,
			"p50", *d.P50,
			"p95", *d.P95,
			"p99", *d.P99,
			"max", *d.Max)
	}
	logging.Info("window report", args...)
}
