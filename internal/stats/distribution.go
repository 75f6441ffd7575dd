package stats

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
)

// DefaultBins is the bin count of composite histograms.
const DefaultBins = 10

// Band is a closed score range [Min, Max].
type Band struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether v lies in the band, both ends inclusive.
func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// DefaultBands are the eight grade bands used for subject distributions,
// highest first.
func DefaultBands() []Band {
	return []Band{
		{"90-100", 90, 100},
		{"80-89", 80, 89},
		{"70-79", 70, 79},
		{"60-69", 60, 69},
		{"50-59", 50, 59},
		{"40-49", 40, 49},
		{"30-39", 30, 39},
		{"0-29", 0, 29},
	}
}

// ParseBands reads bands written as "90-100,80-89,...". Order is preserved.
func ParseBands(list string) ([]Band, error) {
	var out []Band
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// split on the first '-' after a leading digit so negative lows still parse
		cut := strings.Index(part[1:], "-")
		if cut < 0 {
			return nil, fmt.Errorf("band %q: want MIN-MAX", part)
		}
		cut++
		lo, err := strconv.ParseFloat(strings.TrimSpace(part[:cut]), 64)
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", part, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(part[cut+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", part, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("band %q: max below min", part)
		}
		out = append(out, Band{Label: part, Min: lo, Max: hi})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bands in %q", list)
	}
	return out, nil
}

// Bucket is a band with the number of scores it holds.
type Bucket struct {
	Label string  `json:"range"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Distribution counts the valid scores of one subject per band. Each score goes
// to the first band containing it; scores outside every band are not counted.
// The result always has one bucket per band. A nil bands uses DefaultBands.
func Distribution(ds *dataset.Dataset, subject string, bands []Band) []Bucket {
	if bands == nil {
		bands = DefaultBands()
	}
	out := make([]Bucket, len(bands))
	for k, b := range bands {
		out[k] = Bucket{Label: b.Label, Min: b.Min, Max: b.Max}
	}
	j, ok := ds.SubjectIndex(subject)
	if !ok {
		return out
	}
	for _, v := range ds.Column(j) {
		for k, b := range bands {
			if b.Contains(v) {
				out[k].Count++
				break
			}
		}
	}
	return out
}

// Bin is one equal-width histogram bin covering [Lo, Hi); the last bin also
// includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram spreads values over bins equal-width bins spanning their observed
// min and max. bins <= 0 uses DefaultBins. When every value is equal a single
// bin holds them all; no values yields nil.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}
	// work in halves so hi-lo cannot overflow for scores near the float64 range
	half := (hi/2 - lo/2) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = 2 * (lo/2 + float64(i)*half)
		out[i].Hi = 2 * (lo/2 + float64(i+1)*half)
	}
	out[bins-1].Hi = hi
	for _, v := range values {
		idx := int((v/2 - lo/2) / half)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// CompositeHistogram bins the composite averages of all students that have one.
func CompositeHistogram(ds *dataset.Dataset, bins int) []Bin {
	comps := Composites(ds)
	vals := make([]float64, len(comps))
	for i, c := range comps {
		vals[i] = c.Average
	}
	return Histogram(vals, bins)
}
