package stats

import (
	"math"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTrendThreshold is the |r| a fit must exceed before a trend line is drawn.
const DefaultTrendThreshold = 0.1

// Fit is an ordinary least-squares line y = Slope*x + Intercept over the paired
// sample of two subjects. OK is false when the x values have zero variance (which
// includes samples of fewer than two points); the other numbers are then zero.
type Fit struct {
	X         string  `json:"x"`
	Y         string  `json:"y"`
	N         int     `json:"n"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	R2        float64 `json:"r2"`
	MinX      float64 `json:"min_x"`
	MaxX      float64 `json:"max_x"`
	OK        bool    `json:"ok"`
}

// LinearFit fits y against x over students holding both scores.
func LinearFit(ds *dataset.Dataset, x, y string) Fit {
	p := Pair(ds, x, y)
	f := FitPoints(p.X, p.Y)
	f.X, f.Y = x, y
	return f
}

// FitPoints computes the least-squares line through the points (xs[i], ys[i]).
func FitPoints(xs, ys []float64) Fit {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	xs, ys = xs[:n], ys[:n]
	f := Fit{N: n, R: Pearson(xs, ys)}
	// constant x, including n < 2: no line
	if constant(xs) {
		return f
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 || !finite(sxx) {
		return f
	}
	f.Slope = sxy / sxx
	f.Intercept = my - f.Slope*mx
	if !finite(f.Slope) || !finite(f.Intercept) {
		f.Slope, f.Intercept = 0, 0
		return f
	}
	f.OK = true
	f.MinX, f.MaxX = floats.Min(xs), floats.Max(xs)
	if constant(ys) {
		f.R2 = 1
	} else if r2 := stat.RSquared(xs, ys, nil, f.Intercept, f.Slope); finite(r2) {
		f.R2 = r2
	}
	return f
}

// Predict evaluates the line at x.
func (f Fit) Predict(x float64) float64 { return f.Slope*x + f.Intercept }

// Trend reports whether the fit is worth drawing: a valid line over at least
// MinPairs points whose correlation magnitude exceeds threshold.
func (f Fit) Trend(threshold float64) bool {
	return f.OK && f.N >= MinPairs && math.Abs(f.R) > threshold
}

// Line returns the overlay segment endpoints at the observed x extremes.
func (f Fit) Line() (x0, y0, x1, y1 float64) {
	return f.MinX, f.Predict(f.MinX), f.MaxX, f.Predict(f.MaxX)
}
