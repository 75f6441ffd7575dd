// Package stats computes derived views over an immutable dataset: aggregates,
// rankings, distributions, correlations and linear fits. Every function is pure;
// insufficient data yields a neutral value rather than an error, and no NaN or
// infinity is ever returned.
package stats

import (
	"encoding/json"
	"sort"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
)

// Summary describes the valid values of one subject. Count == 0 means no data;
// the numeric fields are then meaningless and render as N/A.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// OK reports whether the summary has data.
func (s Summary) OK() bool { return s.Count > 0 }

// MarshalJSON emits nulls for a summary without data.
func (s Summary) MarshalJSON() ([]byte, error) {
	type out struct {
		Count  int      `json:"count"`
		Mean   *float64 `json:"average"`
		Median *float64 `json:"median"`
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
	}
	o := out{Count: s.Count}
	if s.OK() {
		o.Mean, o.Median, o.Min, o.Max = &s.Mean, &s.Median, &s.Min, &s.Max
	}
	return json.Marshal(o)
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var in struct {
		Count  int      `json:"count"`
		Mean   *float64 `json:"average"`
		Median *float64 `json:"median"`
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Summary{Count: in.Count}
	for dst, src := range map[*float64]*float64{&s.Mean: in.Mean, &s.Median: in.Median, &s.Min: in.Min, &s.Max: in.Max} {
		if src != nil {
			*dst = *src
		}
	}
	return nil
}

// Summarize computes mean, median, min and max of values.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	return Summary{
		Count:  len(values),
		Mean:   mean(values),
		Median: Median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Median returns the middle of the sorted values, averaging the two central
// elements for an even count. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, values)
	sort.Float64s(cp)
	mid := n / 2
	if n%2 == 0 {
		return midpoint(cp[mid-1], cp[mid])
	}
	return cp[mid]
}

// SubjectSummary summarizes one subject. Unknown subjects have no data.
func SubjectSummary(ds *dataset.Dataset, subject string) Summary {
	j, ok := ds.SubjectIndex(subject)
	if !ok {
		return Summary{}
	}
	return Summarize(ds.Column(j))
}

// Composite returns student i's mean over every subject with a valid score.
// ok is false when the student has no valid score at all.
func Composite(ds *dataset.Dataset, i int) (avg float64, ok bool) {
	vals := studentScores(ds, i)
	if len(vals) == 0 {
		return 0, false
	}
	return mean(vals), true
}

// studentScores returns student i's valid scores in subject order.
func studentScores(ds *dataset.Dataset, i int) []float64 {
	var out []float64
	for j := 0; j < ds.NumSubjects(); j++ {
		if v, ok := ds.Score(i, j); ok {
			out = append(out, v)
		}
	}
	return out
}

// SubjectMean is the mean of one subject over its valid values.
type SubjectMean struct {
	Subject string  `json:"subject"`
	Mean    float64 `json:"average"`
	Count   int     `json:"count"`
}

// SubjectMeans returns every subject's mean in declared order. Subjects without
// data carry Count == 0 and Mean == 0.
func SubjectMeans(ds *dataset.Dataset) []SubjectMean {
	out := make([]SubjectMean, ds.NumSubjects())
	for j := range out {
		col := ds.Column(j)
		out[j] = SubjectMean{Subject: ds.Subject(j), Count: len(col)}
		if len(col) > 0 {
			out[j].Mean = mean(col)
		}
	}
	return out
}

// BestSubject returns the subject with the strictly highest mean. Ties go to the
// subject declared first.
func BestSubject(ds *dataset.Dataset) (SubjectMean, bool) {
	var best SubjectMean
	found := false
	for _, m := range SubjectMeans(ds) {
		if m.Count == 0 {
			continue
		}
		if !found || m.Mean > best.Mean {
			best, found = m, true
		}
	}
	return best, found
}

// OverallAverage is the mean of every valid score in the dataset.
func OverallAverage(ds *dataset.Dataset) (float64, bool) {
	var all []float64
	for i := 0; i < ds.Len(); i++ {
		all = append(all, studentScores(ds, i)...)
	}
	if len(all) == 0 {
		return 0, false
	}
	return mean(all), true
}

// OverviewStats is the headline block of a dashboard.
type OverviewStats struct {
	Students       int           `json:"total_students"`
	Subjects       []string      `json:"subjects"`
	OverallAverage *float64      `json:"overall_average"`
	TopPerformer   *Ranked       `json:"top_performer"`
	BestSubject    *SubjectMean  `json:"best_subject"`
	SubjectMeans   []SubjectMean `json:"subject_averages"`
}

// Overview computes the headline statistics. Missing pieces are nil.
func Overview(ds *dataset.Dataset) OverviewStats {
	o := OverviewStats{
		Students:     ds.Len(),
		Subjects:     ds.Subjects(),
		SubjectMeans: SubjectMeans(ds),
	}
	if avg, ok := OverallAverage(ds); ok {
		o.OverallAverage = &avg
	}
	if top, ok := TopPerformer(ds); ok {
		o.TopPerformer = &top
	}
	if best, ok := BestSubject(ds); ok {
		o.BestSubject = &best
	}
	return o
}

// Thresholds split scores into failing and excellent counts.
type Thresholds struct {
	Pass      float64 `json:"pass"`
	Excellent float64 `json:"excellent"`
}

// DefaultThresholds marks below 60 as failing and 90 or more as excellent.
func DefaultThresholds() Thresholds { return Thresholds{Pass: 60, Excellent: 90} }

// Performance is a per-subject summary with threshold counts.
type Performance struct {
	Subject   string  `json:"subject"`
	Summary   Summary `json:"summary"`
	BelowPass int     `json:"below_pass"`
	Excellent int     `json:"excellent"`
}

// SubjectPerformance summarizes every subject in declared order.
func SubjectPerformance(ds *dataset.Dataset, th Thresholds) []Performance {
	out := make([]Performance, ds.NumSubjects())
	for j := range out {
		col := ds.Column(j)
		p := Performance{Subject: ds.Subject(j), Summary: Summarize(col)}
		for _, v := range col {
			if v < th.Pass {
				p.BelowPass++
			}
			if v >= th.Excellent {
				p.Excellent++
			}
		}
		out[j] = p
	}
	return out
}
