// Package formulas holds small numeric helpers shared by the optimizer and
// the report writers.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Min returns the smallest value and its index, or (+Inf, -1) for empty input.
func Min(data []float64) (float64, int) {
	if len(data) == 0 {
		return math.Inf(1), -1
	}
	idx := floats.MinIdx(data)
	return data[idx], idx
}

// Improvement returns how much lower the last value is than the first.
// Positive values mean the series went down.
func Improvement(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return data[0] - data[len(data)-1]
}

// Tail returns the last n values of data, or all of it when shorter.
func Tail(data []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

// RunningMin converts a series into its running minimum.
// RunningMin([3, 1, 2]) = [3, 1, 1]
func RunningMin(data []float64) []float64 {
	out := make([]float64, len(data))
	best := math.Inf(1)
	for i, v := range data {
		if v < best {
			best = v
		}
		out[i] = best
	}
	return out
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
