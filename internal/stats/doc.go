// Package stats derives message-arrival frequency statistics from raw
// arrival timestamps.
//
// ComputeRates turns a timestamp collection into instantaneous rates
// (reciprocal of consecutive positive time deltas). FilterOutliers removes
// rates that deviate from the population mean by more than a configurable
// multiple of the population standard deviation. Summarize condenses the
// filtered sequence into mean/median/stddev/min/max.
//
// All functions are pure and never fail: empty input, single timestamps,
// non-positive deltas and empty filtered sets all fall back to empty
// sequences or zero-valued summaries. Callers treat an all-zero Summary as
// "insufficient data", not as an error.
package stats
