package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// mean is the arithmetic mean of values. Sums that overflow float64 fall back
// to accumulating v/n, which stays within range for any finite input.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if m := stat.Mean(values, nil); finite(m) {
		return m
	}
	n := float64(len(values))
	var m float64
	for _, v := range values {
		m += v / n
	}
	return m
}

// midpoint is (a+b)/2 without overflowing.
func midpoint(a, b float64) float64 {
	if m := (a + b) / 2; finite(m) {
		return m
	}
	return a/2 + b/2
}

// saturatingSum adds values, clamping an overflow to ±math.MaxFloat64.
func saturatingSum(values []float64) float64 {
	s := floats.Sum(values)
	switch {
	case math.IsInf(s, 1):
		return math.MaxFloat64
	case math.IsInf(s, -1):
		return -math.MaxFloat64
	}
	return s
}

// constant reports whether every value is identical. Float rounding means a
// computed variance of such a sample need not be exactly zero.
func constant(values []float64) bool {
	return len(values) == 0 || floats.Min(values) == floats.Max(values)
}

// unitScale divides values by their largest magnitude when that magnitude is
// large enough for squared deviations to overflow. Correlation is invariant
// under positive scaling.
func unitScale(values []float64) []float64 {
	const limit = 1e150
	var m float64
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	if m < limit {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / m
	}
	return out
}
