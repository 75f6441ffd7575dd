package stats

import (
	"math"
	"sort"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
)

// MinPairs is the smallest paired sample that yields a non-zero correlation.
const MinPairs = 3

// Paired holds the students with valid scores for both subjects of a pair.
type Paired struct {
	Index []int     // dataset positions
	X     []float64 // first subject
	Y     []float64 // second subject
}

// Len returns the paired sample size.
func (p Paired) Len() int { return len(p.X) }

// Pair collects the paired sample for subjects x and y in dataset order.
func Pair(ds *dataset.Dataset, x, y string) Paired {
	jx, okx := ds.SubjectIndex(x)
	jy, oky := ds.SubjectIndex(y)
	if !okx || !oky {
		return Paired{}
	}
	return pairAt(ds, jx, jy)
}

// pairAt collects the paired sample for subject columns jx and jy.
func pairAt(ds *dataset.Dataset, jx, jy int) Paired {
	var p Paired
	for i := 0; i < ds.Len(); i++ {
		vx, ok := ds.Score(i, jx)
		if !ok {
			continue
		}
		vy, ok := ds.Score(i, jy)
		if !ok {
			continue
		}
		p.Index = append(p.Index, i)
		p.X = append(p.X, vx)
		p.Y = append(p.Y, vy)
	}
	return p
}

// Pearson returns the correlation coefficient of x and y, centred on the means
// of the given sample. It returns 0 for fewer than MinPairs points or when either
// side has zero variance. Pearson(x, y) == Pearson(y, x) exactly.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < MinPairs {
		return 0
	}
	x, y = x[:n], y[:n]
	if constant(x) || constant(y) {
		return 0
	}
	x, y = unitScale(x), unitScale(y)
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	denom := math.Sqrt(sxx) * math.Sqrt(syy)
	if denom == 0 {
		return 0
	}
	r := sxy / denom
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// Correlation is the Pearson coefficient of two subjects over their paired
// sample. A subject correlates with itself at exactly 1.
func Correlation(ds *dataset.Dataset, a, b string) float64 {
	if a == b {
		if _, ok := ds.SubjectIndex(a); ok {
			return 1
		}
		return 0
	}
	p := Pair(ds, a, b)
	return Pearson(p.X, p.Y)
}

// Matrix is a square correlation matrix indexed by subject order.
type Matrix struct {
	Subjects []string    `json:"subjects"`
	Values   [][]float64 `json:"matrix"`
}

// CorrelationMatrix correlates every pair of subject columns by position, so
// repeated subject names do not alias. The diagonal is 1 and the matrix is
// symmetric. A dataset without subjects yields an empty matrix.
func CorrelationMatrix(ds *dataset.Dataset) Matrix {
	subjects := ds.Subjects()
	n := len(subjects)
	m := Matrix{Subjects: subjects, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			p := pairAt(ds, a, b)
			r := Pearson(p.X, p.Y)
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

// At returns the coefficient for a subject pair.
func (m Matrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, s := range m.Subjects {
		if s == a && ia < 0 {
			ia = i
		}
		if s == b && ib < 0 {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// PairCorr is one off-diagonal matrix entry.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// TopPairs lists the n strongest subject pairs by |r|. n <= 0 returns all pairs.
func TopPairs(m Matrix, n int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Subjects {
		for j := i + 1; j < len(m.Subjects); j++ {
			pairs = append(pairs, PairCorr{A: m.Subjects[i], B: m.Subjects[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
