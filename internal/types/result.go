package types

// Summary holds basic statistics over the readings resident in the window.
type Summary struct {
	// Count is the number of readings accumulated.
	Count int64

	// Sum is the arithmetic total of all readings.
	Sum float64

	// Mean is Sum / Count. Meaningful only when Count > 0; callers must
	// check IsEmpty before using it.
	Mean float64
}

// IsEmpty returns true if no readings were accumulated. An empty summary is
// the "no data" outcome, distinct from a numeric zero.
func (s Summary) IsEmpty() bool {
	return s.Count == 0
}

// Distribution holds rank-based statistics over the readings resident in the
// window. Quantile fields are nil when no readings were available.
type Distribution struct {
	// Count is the number of readings the quantiles were computed over.
	Count int64

	// Sum and Mean are populated by the approximate engine, which tracks
	// them exactly alongside the quantile estimate. The exact engine leaves
	// them zero; it reports order statistics only.
	Sum  float64
	Mean float64

	// Quantiles (nil if Count == 0)
	P50 *float64 // median
	P95 *float64 // 95th percentile
	P99 *float64 // 99th percentile
	Max *float64 // maximum (100th percentile)
}

// IsEmpty returns true if no readings were available.
func (d Distribution) IsEmpty() bool {
	return d.Count == 0
}

// HasQuantiles returns true if quantile data is available.
func (d Distribution) HasQuantiles() bool {
	return d.P50 != nil
}

// SetQuantiles sets all quantile values.
func (d *Distribution) SetQuantiles(p50, p95, p99, max float64) {
	d.P50 = &p50
	d.P95 = &p95
	d.P99 = &p99
	d.Max = &max
}
