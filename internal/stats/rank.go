package stats

import (
	"sort"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
)

// Ranked is a student with a composite score.
type Ranked struct {
	Rank     int     `json:"rank"`
	Index    int     `json:"-"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Average  float64 `json:"average"`
	Total    float64 `json:"total_score"`
	Subjects int     `json:"subjects"`
}

// Composites returns every student with at least one valid score, in dataset
// order. Rank is left zero.
func Composites(ds *dataset.Dataset) []Ranked {
	out := make([]Ranked, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		vals := studentScores(ds, i)
		if len(vals) == 0 {
			continue
		}
		st := ds.Student(i)
		out = append(out, Ranked{
			Index:    i,
			ID:       st.ID,
			Name:     st.Label(),
			Average:  mean(vals),
			Total:    saturatingSum(vals),
			Subjects: len(vals),
		})
	}
	return out
}

// Rank returns the k students with the highest composite average, descending.
// Equal averages keep dataset order. k <= 0 yields an empty slice.
func Rank(ds *dataset.Dataset, k int) []Ranked {
	if k <= 0 {
		return []Ranked{}
	}
	all := rankAll(ds)
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// TopPerformer is the rank-1 student.
func TopPerformer(ds *dataset.Dataset) (Ranked, bool) {
	top := Rank(ds, 1)
	if len(top) == 0 {
		return Ranked{}, false
	}
	return top[0], true
}

func rankAll(ds *dataset.Dataset) []Ranked {
	all := Composites(ds)
	sort.SliceStable(all, func(a, b int) bool { return all[a].Average > all[b].Average })
	for i := range all {
		all[i].Rank = i + 1
	}
	return all
}
