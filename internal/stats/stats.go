package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Sigma multiplier bounds for outlier filtering. Values outside the range are
// clamped rather than rejected.
const (
	DefaultSigma = 2.0
	MinSigma     = 0.5
	MaxSigma     = 5.0
)

// minFilterSamples is the smallest rate count for which dispersion-based
// outlier filtering is meaningful. Below it the input passes through unchanged.
const minFilterSamples = 3

// Summary holds the derived frequency statistics for one channel.
// Mean, Median, StdDev, Min and Max are computed over the Filtered sequence
// and are all zero when Filtered is empty.
type Summary struct {
	// SampleCount is the size of the timestamp set the summary was derived
	// from at computation time.
	SampleCount int

	// Raw is the full instantaneous-rate sequence in timestamp order.
	Raw []float64

	// Filtered is Raw with outliers removed. Always an order-preserving
	// subsequence of Raw.
	Filtered []float64

	// Outliers is len(Raw) - len(Filtered).
	Outliers int

	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// ClampSigma bounds a sigma multiplier to [MinSigma, MaxSigma]. NaN and
// non-positive values fall back to DefaultSigma.
func ClampSigma(sigma float64) float64 {
	if math.IsNaN(sigma) || sigma <= 0 {
		return DefaultSigma
	}
	if sigma < MinSigma {
		return MinSigma
	}
	if sigma > MaxSigma {
		return MaxSigma
	}
	return sigma
}

// ComputeRates derives instantaneous rates from an unordered collection of
// arrival timestamps (seconds). The input is sorted ascending, each
// consecutive positive delta contributes the rate 1/delta, and non-positive
// deltas (duplicate timestamps) are skipped. The input slice is not mutated.
//
// Fewer than two timestamps yield an empty result.
func ComputeRates(timestamps []float64) []float64 {
	if len(timestamps) < 2 {
		return nil
	}
	sorted := slices.Clone(timestamps)
	slices.Sort(sorted)

	rates := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		delta := sorted[i] - sorted[i-1]
		if delta > 0 {
			rates = append(rates, 1/delta)
		}
	}
	return rates
}

// FilterOutliers removes rates whose absolute deviation from the population
// mean reaches sigma times the population standard deviation. A deviation
// exactly on the boundary counts as an outlier. Order is preserved: the
// returned slice is a subsequence of rates.
//
// Fewer than minFilterSamples rates are returned unchanged with a zero
// outlier count — too small a sample for dispersion-based filtering.
func FilterOutliers(rates []float64, sigma float64) (kept []float64, outliers int) {
	if len(rates) < minFilterSamples {
		return rates, 0
	}
	sigma = ClampSigma(sigma)

	mean := stat.Mean(rates, nil)
	limit := sigma * stat.PopStdDev(rates, nil)

	kept = make([]float64, 0, len(rates))
	for _, r := range rates {
		// A rate sitting exactly on the mean is never an outlier, even when
		// the whole sequence is constant and the limit collapses to zero.
		if d := math.Abs(r - mean); d == 0 || d < limit {
			kept = append(kept, r)
		}
	}
	return kept, len(rates) - len(kept)
}

// Summarize condenses a raw and filtered rate sequence into a Summary.
// An empty filtered sequence produces all-zero statistics so callers never
// divide by zero downstream. SampleCount is left for the caller to fill in,
// since only the owner of the timestamp set knows its cardinality.
func Summarize(raw, filtered []float64) Summary {
	s := Summary{
		Raw:      raw,
		Filtered: filtered,
		Outliers: len(raw) - len(filtered),
	}
	if len(filtered) == 0 {
		return s
	}

	s.Mean = stat.Mean(filtered, nil)
	s.StdDev = stat.PopStdDev(filtered, nil)
	s.Min = slices.Min(filtered)
	s.Max = slices.Max(filtered)
	s.Median = median(filtered)
	return s
}

// median returns the standard even/odd median of xs: the middle element for
// odd lengths, the average of the two middle elements for even lengths.
func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
