package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EA80FC"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#667085"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	goodStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#12B76A"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F79009"))

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F97066"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#667085")).
			Padding(0, 1)
)

const barWidth = 24

// Terminal renders the whole report for a terminal.
func (r *Report) Terminal() string {
	blocks := []string{RenderOverview(r.Overview)}
	for i, p := range r.Subjects {
		var buckets []stats.Bucket
		if i < len(r.Distributions) {
			buckets = r.Distributions[i].Buckets
		}
		blocks = append(blocks, RenderSubject(p, buckets))
	}
	blocks = append(blocks,
		RenderRanking(r.Top),
		RenderHistogram(r.Histogram),
		RenderMatrix(r.Correlation),
	)
	if r.Fit != nil {
		blocks = append(blocks, RenderFit(*r.Fit))
	}
	if len(r.Groups) > 0 {
		blocks = append(blocks, RenderGroups(r.GroupBy, r.Groups))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// RenderOverview shows the headline numbers in a box.
func RenderOverview(o stats.OverviewStats) string {
	top, best := "N/A", "N/A"
	if o.TopPerformer != nil {
		top = fmt.Sprintf("%s (%.2f)", o.TopPerformer.Name, o.TopPerformer.Average)
	}
	if o.BestSubject != nil {
		best = fmt.Sprintf("%s (%.2f)", o.BestSubject.Subject, o.BestSubject.Mean)
	}
	lines := []string{
		titleStyle.Render("Overview"),
		kv("Students", fmt.Sprintf("%d", o.Students)),
		kv("Subjects", fmt.Sprintf("%d", len(o.Subjects))),
		kv("Overall average", optNum(o.OverallAverage)),
		kv("Top performer", top),
		kv("Best subject", best),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RenderSubject shows one subject's summary and band distribution.
func RenderSubject(p stats.Performance, buckets []stats.Bucket) string {
	lines := []string{
		titleStyle.Render(p.Subject),
		labelStyle.Render(summaryText(p.Summary)),
	}
	if p.Summary.OK() {
		lines = append(lines, fmt.Sprintf("%s %s   %s %s",
			labelStyle.Render("failing:"), badStyle.Render(fmt.Sprintf("%d", p.BelowPass)),
			labelStyle.Render("excellent:"), goodStyle.Render(fmt.Sprintf("%d", p.Excellent))))
	}
	maxCount := 0
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	for i, b := range buckets {
		lines = append(lines, fmt.Sprintf("%-8s %s %3d", b.Label, bar(b.Count, maxCount, i, len(buckets)), b.Count))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderRanking lists ranked students.
func RenderRanking(top []stats.Ranked) string {
	lines := []string{titleStyle.Render("Top students")}
	if len(top) == 0 {
		lines = append(lines, labelStyle.Render("~ no students with scores ~"))
	}
	for _, s := range top {
		lines = append(lines, fmt.Sprintf("%3d. %-24s %s %s",
			s.Rank, truncate(s.Name, 24), valueStyle.Render(fmt.Sprintf("%6.2f", s.Average)),
			labelStyle.Render(fmt.Sprintf("total %.1f", s.Total))))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderHistogram draws composite histogram bars.
func RenderHistogram(bins []stats.Bin) string {
	lines := []string{titleStyle.Render("Composite distribution")}
	if len(bins) == 0 {
		lines = append(lines, labelStyle.Render("~ insufficient data ~"))
	}
	maxCount := 0
	for _, b := range bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	for i, b := range bins {
		label := fmt.Sprintf("%6.1f-%-6.1f", b.Lo, b.Hi)
		lines = append(lines, fmt.Sprintf("%s %s %3d", label, bar(b.Count, maxCount, len(bins)-1-i, len(bins)), b.Count))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderMatrix prints the correlation matrix with coefficients colored by strength.
func RenderMatrix(m stats.Matrix) string {
	lines := []string{titleStyle.Render("Correlations")}
	if len(m.Subjects) < 2 {
		lines = append(lines, labelStyle.Render("~ need at least two subjects ~"))
		return strings.Join(lines, "\n") + "\n"
	}
	head := fmt.Sprintf("%-12s", "")
	for _, s := range m.Subjects {
		head += fmt.Sprintf(" %8s", truncate(s, 8))
	}
	lines = append(lines, labelStyle.Render(head))
	for i, row := range m.Values {
		line := fmt.Sprintf("%-12s", truncate(m.Subjects[i], 12))
		for _, v := range row {
			line += " " + corrStyle(v).Render(fmt.Sprintf("%8.2f", v))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderFit describes a regression and whether a trend line applies.
func RenderFit(f FitView) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("%s vs %s", f.Y, f.X))}
	if !f.OK {
		lines = append(lines, warnStyle.Render("no fit: x has no variance"), kv("points", fmt.Sprintf("%d", f.N)))
		return strings.Join(lines, "\n") + "\n"
	}
	lines = append(lines,
		kv("line", fmt.Sprintf("y = %.4f·x %+.4f", f.Slope, f.Intercept)),
		kv("r", corrStyle(f.R).Render(fmt.Sprintf("%.3f", f.R))),
		kv("r²", fmt.Sprintf("%.3f", f.R2)),
		kv("points", fmt.Sprintf("%d", f.N)),
	)
	if f.Trend {
		lines = append(lines, goodStyle.Render("trend line shown"))
	} else {
		lines = append(lines, labelStyle.Render("trend line hidden"))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderProfile compares a student with the class means.
func RenderProfile(p stats.Profile) string {
	title := p.Name
	if p.ID != "" && p.ID != p.Name {
		title += " (" + p.ID + ")"
	}
	lines := []string{titleStyle.Render(title)}
	if p.Composite != nil {
		lines = append(lines, kv("Average", fmt.Sprintf("%.2f", *p.Composite)),
			kv("Rank", fmt.Sprintf("%d of %d", p.Rank, p.Of)))
	} else {
		lines = append(lines, kv("Average", "N/A"))
	}
	for _, s := range p.Scores {
		st := goodStyle
		if s.Score < s.ClassMean {
			st = badStyle
		}
		lines = append(lines, fmt.Sprintf("%-16s %s %s", truncate(s.Subject, 16),
			st.Render(fmt.Sprintf("%6.2f", s.Score)), labelStyle.Render(fmt.Sprintf("class %.2f", s.ClassMean))))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderGroups lists per-group subject means.
func RenderGroups(column string, groups []stats.Group) string {
	lines := []string{titleStyle.Render("By " + column)}
	if len(groups) == 0 {
		lines = append(lines, labelStyle.Render("~ no groups ~"))
	}
	for _, g := range groups {
		lines = append(lines, valueStyle.Render(fmt.Sprintf("%s (n=%d)", g.Key, g.Size)))
		for _, m := range g.Means {
			v := "N/A"
			if m.Count > 0 {
				v = fmt.Sprintf("%.2f", m.Mean)
			}
			lines = append(lines, fmt.Sprintf("  %-16s %s", truncate(m.Subject, 16), v))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func kv(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-16s", label+":")) + " " + valueStyle.Render(value)
}

func corrStyle(r float64) lipgloss.Style {
	switch a := math.Abs(r); {
	case a >= 0.7:
		return goodStyle
	case a >= 0.4:
		return warnStyle
	default:
		return labelStyle
	}
}

// bar draws a count as a block bar; idx 0 is coloured green and the last red.
func bar(count, maxCount, idx, total int) string {
	if maxCount <= 0 {
		maxCount = 1
	}
	filled := int(math.Round(float64(count) / float64(maxCount) * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	st := goodStyle
	if total > 1 {
		switch pos := float64(idx) / float64(total-1); {
		case pos > 0.66:
			st = badStyle
		case pos > 0.33:
			st = warnStyle
		}
	}
	return st.Render(strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
