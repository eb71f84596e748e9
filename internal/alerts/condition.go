package alerts

import (
	"strconv"
	"strings"

	"github.com/ratewatch/ratewatch/internal/panel"
)

// evalCondition evaluates a rule condition string against one channel summary.
//
// Supported expressions (field operator value):
//
//	mean_hz < 0.5
//	median_hz < 1
//	stddev_hz > 5
//	min_hz == 0
//	max_hz > 100
//	messages == 0
//	samples < 2
//	filtered < 2
//	outliers > 10
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, cs panel.ChannelSummary) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, cs)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the summary.
func numericField(field string, cs panel.ChannelSummary) (float64, bool) {
	s := cs.Summary
	switch field {
	case "mean_hz":
		return s.Mean, true
	case "median_hz":
		return s.Median, true
	case "stddev_hz":
		return s.StdDev, true
	case "min_hz":
		return s.Min, true
	case "max_hz":
		return s.Max, true
	case "messages":
		return float64(s.SampleCount), true
	case "samples":
		return float64(len(s.Raw)), true
	case "filtered":
		return float64(len(s.Filtered)), true
	case "outliers":
		return float64(s.Outliers), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
