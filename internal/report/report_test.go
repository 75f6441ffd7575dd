package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	header := []string{"Unique ID", "Name", "Seat Number", "Math", "Science", "SUPW"}
	rows := [][]string{
		{"1", "Asha", "S1", "90", "88", "A"},
		{"2", "Ben", "S2", "55", "60", "B"},
		{"3", "Chen", "S3", "72", "n/a", "A"},
		{"4", "Dev", "S4", "81", "79", "B"},
	}
	return dataset.FromRecords(header, rows, dataset.DefaultLoadOptions()).WithName("term1.csv")
}

func TestBuildAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.FitX, opt.FitY = "Math", "Science"
	r := Build(sample(t), opt)

	require.NotNil(t, r.Fit)
	assert.True(t, r.Fit.OK)
	assert.Equal(t, 3, r.Fit.N)
	assert.Len(t, r.Top, 4)
	assert.Len(t, r.Distributions, 2)
	assert.Equal(t, "SUPW", r.GroupBy)
	assert.Len(t, r.Groups, 2)

	md := r.Markdown()
	for _, want := range []string{
		"[OVERVIEW]", "File: term1.csv", "Students: 4", "Top performer: Asha",
		"[SUBJECTS]", "[TOP STUDENTS]", "1. Asha", "[DISTRIBUTIONS]", "90-100(1)",
		"[CORRELATIONS]", "| Math |", "[REGRESSION]", "Science ~ Math (n=3)", "[BY SUPW]",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "NaN")
}

func TestEmptyDatasetRendersNA(t *testing.T) {
	r := Build(dataset.Empty(), DefaultOptions())
	md := r.Markdown()
	assert.Contains(t, md, "Overall average: N/A")
	assert.Contains(t, md, "Top performer: N/A")
	assert.Contains(t, md, "Best subject: N/A")
	assert.NotContains(t, md, "NaN")
	assert.Nil(t, r.Fit)
	assert.Empty(t, r.Groups)

	term := r.Terminal()
	assert.Contains(t, term, "Overview")
	assert.Contains(t, term, "insufficient data")
	assert.NotContains(t, term, "NaN")

	assert.NotPanics(t, func() { Build(nil, Options{}) })
}

func TestDegenerateFitText(t *testing.T) {
	ds := dataset.FromRecords([]string{"Name", "X", "Y"}, [][]string{
		{"a", "50", "10"}, {"b", "50", "20"}, {"c", "50", "30"},
	}, dataset.LoadOptions{NameColumn: "Name"})
	opt := DefaultOptions()
	opt.FitX, opt.FitY = "X", "Y"
	r := Build(ds, opt)
	require.NotNil(t, r.Fit)
	assert.False(t, r.Fit.OK)
	assert.False(t, r.Fit.Trend)
	assert.Contains(t, r.Markdown(), "no variance")
	assert.Contains(t, RenderFit(*r.Fit), "no fit")
}

func TestJSON(t *testing.T) {
	r := Build(sample(t), DefaultOptions())
	b, err := r.JSON()
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "term1.csv", got["name"])
	assert.Contains(t, got, "correlation")
	assert.NotContains(t, got, "fit")
	ov := got["overview"].(map[string]any)
	assert.EqualValues(t, 4, ov["total_students"])
	assert.True(t, strings.HasPrefix(string(b), "{\n  "))
}

func TestTerminalViews(t *testing.T) {
	opt := DefaultOptions()
	opt.FitX, opt.FitY = "Math", "Science"
	r := Build(sample(t), opt)
	out := r.Terminal()
	for _, want := range []string{"Overview", "Asha", "Top students", "Composite distribution", "Correlations", "Science vs Math", "By SUPW"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
}
