package dataset

import (
	"math"
	"strconv"
	"strings"
)

// LoadOptions controls how raw rows become a Dataset.
type LoadOptions struct {
	// Subjects lists subject columns explicitly. When empty they are detected.
	Subjects []string
	// SubjectsAfter and SubjectsBefore bracket the subject columns when both
	// are present in the header (exclusive on both sides).
	SubjectsAfter  string
	SubjectsBefore string
	NameColumn     string
	IDColumn       string
	// GroupColumn is never treated as a subject during detection.
	GroupColumn string
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultLoadOptions matches the exam sheet layout: subjects sit between the
// "Seat Number" and "SUPW" columns.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		SubjectsAfter:  "Seat Number",
		SubjectsBefore: "SUPW",
		NameColumn:     "Name",
		IDColumn:       "Unique ID",
		GroupColumn:    "SUPW",
	}
}

// FromRecords converts a header and string rows into a Dataset.
func FromRecords(header []string, rows [][]string, opt LoadOptions) *Dataset {
	if len(header) == 0 {
		return Empty()
	}
	cols := uniqueHeaders(header)
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	subjIdx := detectSubjects(cols, rows, opt)
	isSubject := make(map[int]bool, len(subjIdx))
	subjects := make([]string, len(subjIdx))
	for k, i := range subjIdx {
		isSubject[i] = true
		subjects[k] = cols[i]
	}
	nameIdx := indexOf(cols, opt.NameColumn)
	idIdx := indexOf(cols, opt.IDColumn)

	students := make([]Student, 0, len(rows))
	for _, rec := range rows {
		if blankRow(rec) {
			continue
		}
		scores := make([]Score, len(subjIdx))
		for k, i := range subjIdx {
			if v, ok := ParseScore(cell(rec, i), opt); ok {
				scores[k] = ValidScore(v)
			}
		}
		fields := map[string]string{}
		for i, c := range cols {
			if isSubject[i] || i == nameIdx || i == idIdx || c == "" {
				continue
			}
			fields[c] = strings.TrimSpace(cell(rec, i))
		}
		students = append(students, NewStudent(
			strings.TrimSpace(cell(rec, idIdx)),
			strings.TrimSpace(cell(rec, nameIdx)),
			scores, fields,
		))
	}
	return New(subjects, students)
}

// uniqueHeaders trims column names and renames repeats as "Math (2)",
// "Math (3)", so every non-empty column is addressable by name.
func uniqueHeaders(header []string) []string {
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
		if cols[i] != "" {
			seen[cols[i]] = true
		}
	}
	counts := make(map[string]int, len(header))
	for i, c := range cols {
		if c == "" {
			continue
		}
		counts[c]++
		if counts[c] == 1 {
			continue
		}
		for k := counts[c]; ; k++ {
			cand := c + " (" + strconv.Itoa(k) + ")"
			if !seen[cand] {
				cols[i], seen[cand] = cand, true
				counts[c] = k
				break
			}
		}
	}
	return cols
}

func detectSubjects(cols []string, rows [][]string, opt LoadOptions) []int {
	if len(opt.Subjects) > 0 {
		var out []int
		for _, s := range opt.Subjects {
			if i := indexOf(cols, strings.TrimSpace(s)); i >= 0 {
				out = append(out, i)
			}
		}
		return out
	}
	start, end := indexOf(cols, opt.SubjectsAfter), indexOf(cols, opt.SubjectsBefore)
	if start >= 0 && end > start+1 {
		out := make([]int, 0, end-start-1)
		for i := start + 1; i < end; i++ {
			out = append(out, i)
		}
		return out
	}
	skip := map[int]bool{
		indexOf(cols, opt.NameColumn):  true,
		indexOf(cols, opt.IDColumn):    true,
		indexOf(cols, opt.GroupColumn): true,
	}
	var out []int
	for i, c := range cols {
		if skip[i] || c == "" {
			continue
		}
		numeric, seen := true, 0
		for _, rec := range rows {
			v := strings.TrimSpace(cell(rec, i))
			if v == "" {
				continue
			}
			if _, ok := ParseScore(v, opt); !ok {
				numeric = false
				break
			}
			seen++
		}
		if numeric && seen > 0 {
			out = append(out, i)
		}
	}
	return out
}

// ParseScore parses one cell. It tolerates a trailing percent sign and locale
// separators; empty, non-numeric, NaN and infinite values are invalid.
func ParseScore(s string, opt LoadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func indexOf(cols []string, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	for i, c := range cols {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
