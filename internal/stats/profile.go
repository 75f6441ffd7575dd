package stats

import (
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
)

// FindStudent looks a student up by ID, then by case-insensitive name. The first
// match in dataset order wins.
func FindStudent(ds *dataset.Dataset, key string) (int, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, false
	}
	for i := 0; i < ds.Len(); i++ {
		if ds.Student(i).ID == key {
			return i, true
		}
	}
	for i := 0; i < ds.Len(); i++ {
		if strings.EqualFold(strings.TrimSpace(ds.Student(i).Name), key) {
			return i, true
		}
	}
	return 0, false
}

// SubjectScore compares a student's score with the class mean of that subject.
type SubjectScore struct {
	Subject   string  `json:"subject"`
	Score     float64 `json:"score"`
	ClassMean float64 `json:"class_average"`
}

// Profile is one student's standing.
type Profile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Scores    []SubjectScore `json:"performance"`
	Composite *float64       `json:"average"`
	Rank      int            `json:"rank,omitempty"`
	Of        int            `json:"of,omitempty"`
}

// StudentProfile lists student i's valid scores next to the class means, plus
// the composite and its rank among all ranked students.
func StudentProfile(ds *dataset.Dataset, i int) Profile {
	st := ds.Student(i)
	p := Profile{ID: st.ID, Name: st.Label(), Scores: []SubjectScore{}}
	means := SubjectMeans(ds)
	for j := 0; j < ds.NumSubjects(); j++ {
		v, ok := ds.Score(i, j)
		if !ok {
			continue
		}
		p.Scores = append(p.Scores, SubjectScore{Subject: ds.Subject(j), Score: v, ClassMean: means[j].Mean})
	}
	if avg, ok := Composite(ds, i); ok {
		p.Composite = &avg
		all := rankAll(ds)
		p.Of = len(all)
		for _, r := range all {
			if r.Index == i {
				p.Rank = r.Rank
				break
			}
		}
	}
	return p
}

// GroupMean is a subject mean within one group; Count == 0 means no data.
type GroupMean struct {
	Subject string  `json:"subject"`
	Mean    float64 `json:"average"`
	Count   int     `json:"count"`
}

// Group is the students sharing one value of a non-subject column.
type Group struct {
	Key   string      `json:"grade"`
	Size  int         `json:"size"`
	Means []GroupMean `json:"performance"`
}

// GroupMeans partitions students by the raw value of column (empty values are
// skipped) and averages every subject per group. Groups keep first-seen order.
// An unknown column yields no groups.
func GroupMeans(ds *dataset.Dataset, column string) []Group {
	var keys []string
	members := map[string][]int{}
	for i := 0; i < ds.Len(); i++ {
		v, ok := ds.Student(i).Field(column)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if _, seen := members[v]; !seen {
			keys = append(keys, v)
		}
		members[v] = append(members[v], i)
	}
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		g := Group{Key: k, Size: len(members[k]), Means: make([]GroupMean, ds.NumSubjects())}
		for j := range g.Means {
			var vals []float64
			for _, i := range members[k] {
				if v, ok := ds.Score(i, j); ok {
					vals = append(vals, v)
				}
			}
			g.Means[j] = GroupMean{Subject: ds.Subject(j), Count: len(vals)}
			if len(vals) > 0 {
				g.Means[j].Mean = mean(vals)
			}
		}
		out = append(out, g)
	}
	return out
}

// Point is one student in a two-subject scatter.
type Point struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Scatter returns the paired sample of two subjects with student labels.
func Scatter(ds *dataset.Dataset, x, y string) []Point {
	p := Pair(ds, x, y)
	out := make([]Point, p.Len())
	for k, i := range p.Index {
		st := ds.Student(i)
		out[k] = Point{ID: st.ID, Name: st.Label(), X: p.X[k], Y: p.Y[k]}
	}
	return out
}
