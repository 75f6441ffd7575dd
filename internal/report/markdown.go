package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/stats"
)

// Markdown renders the report as sectioned plain text suitable for a .md file.
func (r *Report) Markdown() string {
	var b strings.Builder
	o := r.Overview
	b.WriteString("[OVERVIEW]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Students: %d\n", o.Students))
	b.WriteString(fmt.Sprintf("Subjects: %d\n", len(o.Subjects)))
	b.WriteString(fmt.Sprintf("Overall average: %s\n", optNum(o.OverallAverage)))
	if o.TopPerformer != nil {
		b.WriteString(fmt.Sprintf("Top performer: %s (%.2f)\n", safeVal(o.TopPerformer.Name), o.TopPerformer.Average))
	} else {
		b.WriteString("Top performer: N/A\n")
	}
	if o.BestSubject != nil {
		b.WriteString(fmt.Sprintf("Best subject: %s (%.2f)\n", o.BestSubject.Subject, o.BestSubject.Mean))
	} else {
		b.WriteString("Best subject: N/A\n")
	}

	if len(r.Subjects) > 0 {
		b.WriteString("\n[SUBJECTS]\n")
		for _, p := range r.Subjects {
			s := p.Summary
			if !s.OK() {
				b.WriteString(fmt.Sprintf("- %s: no valid scores\n", safeName(p.Subject)))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: n=%d, mean %.2f, median %.2f, min %.2f, max %.2f; below %g: %d, %g+: %d\n",
				safeName(p.Subject), s.Count, s.Mean, s.Median, s.Min, s.Max,
				r.Thresholds.Pass, p.BelowPass, r.Thresholds.Excellent, p.Excellent))
		}
	}

	b.WriteString("\n[TOP STUDENTS]\n")
	if len(r.Top) == 0 {
		b.WriteString("N/A\n")
	}
	for _, s := range r.Top {
		b.WriteString(fmt.Sprintf("%d. %s: average %.2f (total %.2f over %d subjects)\n",
			s.Rank, safeVal(s.Name), s.Average, s.Total, s.Subjects))
	}

	if len(r.Histogram) > 0 {
		b.WriteString("\n[COMPOSITE HISTOGRAM]\n")
		for _, bin := range r.Histogram {
			b.WriteString(fmt.Sprintf("- %.2f to %.2f: %d\n", bin.Lo, bin.Hi, bin.Count))
		}
	}

	if len(r.Distributions) > 0 {
		b.WriteString("\n[DISTRIBUTIONS]\n")
		for _, d := range r.Distributions {
			parts := make([]string, len(d.Buckets))
			for i, k := range d.Buckets {
				parts[i] = fmt.Sprintf("%s(%d)", k.Label, k.Count)
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(d.Subject), strings.Join(parts, ", ")))
		}
	}

	if len(r.Correlation.Subjects) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		b.WriteString("| |")
		for _, s := range r.Correlation.Subjects {
			b.WriteString(" " + safeVal(s) + " |")
		}
		b.WriteString("\n|---|")
		b.WriteString(strings.Repeat("---|", len(r.Correlation.Subjects)))
		b.WriteString("\n")
		for i, row := range r.Correlation.Values {
			b.WriteString("| " + safeVal(r.Correlation.Subjects[i]) + " |")
			for _, v := range row {
				b.WriteString(fmt.Sprintf(" %.2f |", v))
			}
			b.WriteString("\n")
		}
		if len(r.TopPairs) > 0 {
			b.WriteString("\nStrongest pairs:\n")
			for _, p := range r.TopPairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}

	if r.Fit != nil {
		b.WriteString("\n[REGRESSION]\n")
		b.WriteString(fitText(r.Fit))
	}

	if len(r.Groups) > 0 {
		b.WriteString(fmt.Sprintf("\n[BY %s]\n", strings.ToUpper(safeName(r.GroupBy))))
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", safeVal(g.Key), g.Size))
			for _, m := range g.Means {
				if m.Count == 0 {
					b.WriteString(fmt.Sprintf("  • %s: N/A\n", m.Subject))
					continue
				}
				b.WriteString(fmt.Sprintf("  • %s: mean %.2f (n=%d)\n", m.Subject, m.Mean, m.Count))
			}
		}
	}
	return b.String()
}

func fitText(f *FitView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s ~ %s (n=%d)\n", f.Y, f.X, f.N))
	if !f.OK {
		b.WriteString("No fit: the x values have no variance.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("y = %.4f·x %+.4f\n", f.Slope, f.Intercept))
	b.WriteString(fmt.Sprintf("r = %.3f, r² = %.3f\n", f.R, f.R2))
	if f.Trend {
		x0, y0, x1, y1 := f.Line()
		b.WriteString(fmt.Sprintf("Trend line: (%.2f, %.2f) to (%.2f, %.2f)\n", x0, y0, x1, y1))
	} else {
		b.WriteString("Trend line: not shown (weak correlation or too few points)\n")
	}
	return b.String()
}

func optNum(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// summaryText is the one-line form of a subject summary used by the terminal view.
func summaryText(s stats.Summary) string {
	if !s.OK() {
		return "N/A"
	}
	return fmt.Sprintf("mean %.2f  median %.2f  min %.2f  max %.2f  (n=%d)", s.Mean, s.Median, s.Min, s.Max, s.Count)
}
