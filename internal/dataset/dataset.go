package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Score is one student/subject cell. Invalid scores are missing or non-numeric
// cells and are excluded from every computation.
type Score struct {
	Value float64
	Valid bool
}

// ValidScore returns a valid score holding v.
func ValidScore(v float64) Score { return Score{Value: v, Valid: true} }

// Student is one row of a dataset. Scores and non-subject fields are only
// reachable through accessors, so a loaded dataset cannot be changed.
type Student struct {
	ID     string
	Name   string
	fields map[string]string // non-subject columns, raw text
	scores []Score
}

// NewStudent builds a student; scores are indexed like the dataset subjects.
func NewStudent(id, name string, scores []Score, fields map[string]string) Student {
	s := Student{ID: id, Name: name, scores: make([]Score, len(scores))}
	copy(s.scores, scores)
	s.fields = copyFields(fields)
	return s
}

func copyFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Field returns the raw text of a non-subject column.
func (s Student) Field(name string) (string, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// Fields returns a copy of every non-subject column.
func (s Student) Fields() map[string]string { return copyFields(s.fields) }

// Score returns the value for subject index j and whether it is valid.
func (s Student) Score(j int) (float64, bool) {
	if j < 0 || j >= len(s.scores) {
		return 0, false
	}
	sc := s.scores[j]
	return sc.Value, sc.Valid
}

// Label is the display name of the student, falling back to the ID.
func (s Student) Label() string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	if s.ID != "" {
		return s.ID
	}
	return "Unknown"
}

// Dataset is an immutable snapshot of students and their subject scores.
type Dataset struct {
	id          string
	name        string
	subjects    []string
	index       map[string]int
	students    []Student
	fingerprint uint64
}

// New builds a Dataset from the given subjects and students. Inputs are copied;
// student score slices are padded or truncated to the subject count.
func New(subjects []string, students []Student) *Dataset {
	d := &Dataset{
		id:       uuid.NewString(),
		subjects: make([]string, len(subjects)),
		index:    make(map[string]int, len(subjects)),
		students: make([]Student, len(students)),
	}
	copy(d.subjects, subjects)
	for j, s := range d.subjects {
		if _, dup := d.index[s]; !dup {
			d.index[s] = j
		}
	}
	for i, st := range students {
		scores := make([]Score, len(subjects))
		copy(scores, st.scores)
		d.students[i] = NewStudent(st.ID, st.Name, scores, st.fields)
	}
	d.fingerprint = fingerprint(d)
	return d
}

// Empty returns a dataset with no students and no subjects.
func Empty() *Dataset { return New(nil, nil) }

// WithName returns a shallow copy carrying a display name (usually the source file).
func (d *Dataset) WithName(name string) *Dataset {
	cp := *d
	cp.name = name
	return &cp
}

// ID is the session identifier assigned at load time.
func (d *Dataset) ID() string { return d.id }

// Name is the display name of the source, if any.
func (d *Dataset) Name() string { return d.name }

// Fingerprint is a content hash of subjects, students, fields and scores; equal
// content yields equal fingerprints across sessions.
func (d *Dataset) Fingerprint() uint64 { return d.fingerprint }

// Len returns the number of students.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.students)
}

// Subjects returns the declared subject names in order.
func (d *Dataset) Subjects() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.subjects))
	copy(out, d.subjects)
	return out
}

// NumSubjects returns the subject count.
func (d *Dataset) NumSubjects() int {
	if d == nil {
		return 0
	}
	return len(d.subjects)
}

// Subject returns the subject name at index j.
func (d *Dataset) Subject(j int) string { return d.subjects[j] }

// SubjectIndex resolves a subject name.
func (d *Dataset) SubjectIndex(name string) (int, bool) {
	if d == nil {
		return 0, false
	}
	j, ok := d.index[name]
	return j, ok
}

// Student returns the i-th student in load order.
func (d *Dataset) Student(i int) Student { return d.students[i] }

// Score returns student i's value for subject j.
func (d *Dataset) Score(i, j int) (float64, bool) { return d.students[i].Score(j) }

// Column returns the valid values of subject j in student order.
func (d *Dataset) Column(j int) []float64 {
	if d == nil || j < 0 || j >= len(d.subjects) {
		return nil
	}
	var out []float64
	for _, st := range d.students {
		if v, ok := st.Score(j); ok {
			out = append(out, v)
		}
	}
	return out
}

// Records returns every student as a flat map of fields and subjects. Invalid
// scores come out as empty strings.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, 0, d.Len())
	for _, st := range d.students {
		m := make(map[string]any, len(st.fields)+len(d.subjects)+2)
		for k, v := range st.fields {
			m[k] = v
		}
		for j, s := range d.subjects {
			if v, ok := st.Score(j); ok {
				m[s] = v
			} else {
				m[s] = ""
			}
		}
		m["Name"] = st.Name
		m["ID"] = st.ID
		out = append(out, m)
	}
	return out
}

func (d *Dataset) String() string {
	return fmt.Sprintf("dataset %s (%d students, %d subjects)", d.name, d.Len(), d.NumSubjects())
}

func fingerprint(d *Dataset) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, s := range d.subjects {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	for _, st := range d.students {
		_, _ = h.WriteString(st.ID)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(st.Name)
		_, _ = h.Write([]byte{0})
		keys := make([]string, 0, len(st.fields))
		for k := range st.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{'='})
			_, _ = h.WriteString(st.fields[k])
			_, _ = h.Write([]byte{0})
		}
		for _, sc := range st.scores {
			if !sc.Valid {
				_, _ = h.Write([]byte{0xff})
				continue
			}
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(sc.Value))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}
