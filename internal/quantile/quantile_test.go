package quantile

import (
	"context"
	"math"
	"testing"

	"github.com/xtxerr/slide/internal/bucket"
	"github.com/xtxerr/slide/internal/codec"
)

func storeWith(t *testing.T, groups map[int64][]float64) (*bucket.Store, []bucket.Info) {
	t.Helper()

	s, err := bucket.NewStore(t.TempDir(), 100, 100)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for moment, values := range groups {
		for _, v := range values {
			rec := codec.EncodeRecord(v)
			if err := s.Write(moment, rec[:]); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
	}

	buckets, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return s, buckets
}

func seq(from, to int) []float64 {
	var values []float64
	for i := from; i <= to; i++ {
		values = append(values, float64(i))
	}
	return values
}

func TestNines_TenValues(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{1: seq(1, 10)})

	dist, err := Nines(context.Background(), s.Dir(), buckets, 0)
	if err != nil {
		t.Fatalf("Nines: %v", err)
	}

	if dist.Count != 10 {
		t.Errorf("expected count=10, got %d", dist.Count)
	}
	if !dist.HasQuantiles() {
		t.Fatal("expected quantiles")
	}
	if *dist.P50 != 5 || *dist.P95 != 10 || *dist.P99 != 10 || *dist.Max != 10 {
		t.Errorf("expected {5, 10, 10, 10}, got {%v, %v, %v, %v}",
			*dist.P50, *dist.P95, *dist.P99, *dist.Max)
	}
}

func TestNines_TwentyValues(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{
		1: seq(1, 10),
		2: seq(11, 20),
	})

	dist, err := Nines(context.Background(), s.Dir(), buckets, 0)
	if err != nil {
		t.Fatalf("Nines: %v", err)
	}

	if dist.Count != 20 {
		t.Errorf("expected count=20, got %d", dist.Count)
	}
	if *dist.P50 != 10 || *dist.P95 != 19 || *dist.P99 != 20 || *dist.Max != 20 {
		t.Errorf("expected {10, 19, 20, 20}, got {%v, %v, %v, %v}",
			*dist.P50, *dist.P95, *dist.P99, *dist.Max)
	}
}

func TestNines_Empty(t *testing.T) {
	s, buckets := storeWith(t, nil)

	dist, err := Nines(context.Background(), s.Dir(), buckets, 0)
	if err != nil {
		t.Fatalf("Nines: %v", err)
	}

	if dist.Count != 0 {
		t.Errorf("expected count=0, got %d", dist.Count)
	}
	if dist.HasQuantiles() {
		t.Error("expected no quantiles on empty slide")
	}
}

func TestNines_NoScratchLeftBehind(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{1: seq(1, 5)})

	if _, err := Nines(context.Background(), s.Dir(), buckets, 0); err != nil {
		t.Fatalf("Nines: %v", err)
	}

	after, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != 1 {
		t.Errorf("expected bucket listing unchanged, got %d entries", len(after))
	}
}

func TestNines_SmallChunksMatchSingleChunk(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{
		1: seq(1, 50),
		2: seq(51, 100),
	})

	single, err := Nines(context.Background(), s.Dir(), buckets, 0)
	if err != nil {
		t.Fatalf("Nines: %v", err)
	}
	chunked, err := Nines(context.Background(), s.Dir(), buckets, 8)
	if err != nil {
		t.Fatalf("Nines: %v", err)
	}

	if single.Count != chunked.Count ||
		*single.P50 != *chunked.P50 ||
		*single.P95 != *chunked.P95 ||
		*single.P99 != *chunked.P99 ||
		*single.Max != *chunked.Max {
		t.Errorf("chunked sort diverged: %+v vs %+v", single, chunked)
	}
}

func TestMeanAndNines_Histogram(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{1: seq(1, 100)})

	est, err := NewHistogramEstimator(0, 5_000_000, 20_000)
	if err != nil {
		t.Fatalf("NewHistogramEstimator: %v", err)
	}

	dist, err := MeanAndNines(context.Background(), s, buckets, est)
	if err != nil {
		t.Fatalf("MeanAndNines: %v", err)
	}

	if dist.Count != 100 {
		t.Errorf("expected count=100, got %d", dist.Count)
	}
	if math.Abs(dist.Mean-50.5) > 1e-9 {
		t.Errorf("expected mean=50.5, got %f", dist.Mean)
	}
	if *dist.Max != 100 {
		t.Errorf("expected exact max=100, got %v", *dist.Max)
	}

	// All 100 values land in the first 250-wide bin, so every percentile
	// estimate collapses to the clamped bin edge: the observed max.
	if *dist.P50 != 100 || *dist.P95 != 100 || *dist.P99 != 100 {
		t.Errorf("expected bin-granularity estimates of 100, got {%v, %v, %v}",
			*dist.P50, *dist.P95, *dist.P99)
	}
}

func TestMeanAndNines_HistogramResolvesAcrossBins(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{1: func() []float64 {
		var values []float64
		for i := 1; i <= 1000; i++ {
			values = append(values, float64(i*1000)) // 1_000 .. 1_000_000
		}
		return values
	}()})

	est, err := NewHistogramEstimator(0, 5_000_000, 20_000) // 250-wide bins
	if err != nil {
		t.Fatalf("NewHistogramEstimator: %v", err)
	}

	dist, err := MeanAndNines(context.Background(), s, buckets, est)
	if err != nil {
		t.Fatalf("MeanAndNines: %v", err)
	}

	if math.Abs(*dist.P50-500_000) > 1000 {
		t.Errorf("expected p50 near 500000, got %v", *dist.P50)
	}
	if math.Abs(*dist.P95-950_000) > 1000 {
		t.Errorf("expected p95 near 950000, got %v", *dist.P95)
	}
	if math.Abs(*dist.P99-990_000) > 1000 {
		t.Errorf("expected p99 near 990000, got %v", *dist.P99)
	}
	if *dist.Max != 1_000_000 {
		t.Errorf("expected exact max, got %v", *dist.Max)
	}
}

func TestMeanAndNines_Sketch(t *testing.T) {
	s, buckets := storeWith(t, map[int64][]float64{1: seq(1, 1000)})

	est, err := NewSketchEstimator(0.01)
	if err != nil {
		t.Fatalf("NewSketchEstimator: %v", err)
	}

	dist, err := MeanAndNines(context.Background(), s, buckets, est)
	if err != nil {
		t.Fatalf("MeanAndNines: %v", err)
	}

	if dist.Count != 1000 {
		t.Errorf("expected count=1000, got %d", dist.Count)
	}
	// 1% relative accuracy
	if math.Abs(*dist.P50-500) > 500*0.02 {
		t.Errorf("p50 out of tolerance: %v", *dist.P50)
	}
	if math.Abs(*dist.P99-990) > 990*0.02 {
		t.Errorf("p99 out of tolerance: %v", *dist.P99)
	}
	if *dist.Max != 1000 {
		t.Errorf("expected exact max=1000, got %v", *dist.Max)
	}
}

func TestMeanAndNines_Empty(t *testing.T) {
	s, buckets := storeWith(t, nil)

	est, err := NewHistogramEstimator(0, 5_000_000, 20_000)
	if err != nil {
		t.Fatalf("NewHistogramEstimator: %v", err)
	}

	dist, err := MeanAndNines(context.Background(), s, buckets, est)
	if err != nil {
		t.Fatalf("MeanAndNines: %v", err)
	}
	if !dist.IsEmpty() || dist.HasQuantiles() {
		t.Errorf("expected empty distribution, got %+v", dist)
	}
}
