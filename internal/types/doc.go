// Package types defines the result types shared by the aggregation and
// quantile engines.
//
// Key types:
//   - Summary: count/sum/mean over the resident window
//   - Distribution: count plus rank-based quantiles (and optionally mean)
package types
