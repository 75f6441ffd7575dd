// Package report assembles the derived views of a dataset into one document and
// renders it as Markdown, JSON or styled terminal text.
package report

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
)

// Options controls which views a report includes.
type Options struct {
	TopK           int
	Bins           int
	Bands          []stats.Band // nil uses the default grade bands
	Thresholds     stats.Thresholds
	TrendThreshold float64
	// TopPairs limits the strongest correlations listed; 0 lists them all.
	TopPairs int
	// FitX and FitY select a regression pair. Both empty skips the fit.
	FitX, FitY string
	// GroupBy is the non-subject column to group on. Empty skips grouping.
	GroupBy string
}

// DefaultOptions mirrors the dashboard defaults.
func DefaultOptions() Options {
	return Options{
		TopK:           10,
		Bins:           stats.DefaultBins,
		Thresholds:     stats.DefaultThresholds(),
		TrendThreshold: stats.DefaultTrendThreshold,
		TopPairs:       10,
		GroupBy:        "SUPW",
	}
}

// SubjectDistribution is one subject's band counts.
type SubjectDistribution struct {
	Subject string         `json:"subject"`
	Buckets []stats.Bucket `json:"distribution"`
}

// FitView is a regression with its trend decision.
type FitView struct {
	stats.Fit
	Trend bool `json:"trend"`
}

// Report is every view of one dataset snapshot.
type Report struct {
	Name          string                `json:"name"`
	DatasetID     string                `json:"dataset_id"`
	Fingerprint   string                `json:"fingerprint"`
	GeneratedAt   time.Time             `json:"generated_at"`
	Overview      stats.OverviewStats   `json:"overview"`
	Subjects      []stats.Performance   `json:"subjects"`
	Top           []stats.Ranked        `json:"top_students"`
	Histogram     []stats.Bin           `json:"composite_histogram"`
	Distributions []SubjectDistribution `json:"distributions"`
	Correlation   stats.Matrix          `json:"correlation"`
	TopPairs      []stats.PairCorr      `json:"top_pairs"`
	Fit           *FitView              `json:"fit,omitempty"`
	GroupBy       string                `json:"group_by,omitempty"`
	Groups        []stats.Group         `json:"groups,omitempty"`
	Thresholds    stats.Thresholds      `json:"thresholds"`
}

// Build computes the report for ds.
func Build(ds *dataset.Dataset, opt Options) *Report {
	if ds == nil {
		ds = dataset.Empty()
	}
	if opt.Thresholds == (stats.Thresholds{}) {
		opt.Thresholds = stats.DefaultThresholds()
	}
	r := &Report{
		Name:        ds.Name(),
		DatasetID:   ds.ID(),
		Fingerprint: fmt.Sprintf("%016x", ds.Fingerprint()),
		GeneratedAt: time.Now().UTC(),
		Overview:    stats.Overview(ds),
		Subjects:    stats.SubjectPerformance(ds, opt.Thresholds),
		Top:         stats.Rank(ds, opt.TopK),
		Histogram:   stats.CompositeHistogram(ds, opt.Bins),
		Correlation: stats.CorrelationMatrix(ds),
		Thresholds:  opt.Thresholds,
	}
	r.TopPairs = stats.TopPairs(r.Correlation, opt.TopPairs)
	r.Distributions = make([]SubjectDistribution, 0, ds.NumSubjects())
	for _, s := range ds.Subjects() {
		r.Distributions = append(r.Distributions, SubjectDistribution{
			Subject: s,
			Buckets: stats.Distribution(ds, s, opt.Bands),
		})
	}
	if opt.FitX != "" || opt.FitY != "" {
		f := stats.LinearFit(ds, opt.FitX, opt.FitY)
		r.Fit = &FitView{Fit: f, Trend: f.Trend(opt.TrendThreshold)}
	}
	if opt.GroupBy != "" {
		if g := stats.GroupMeans(ds, opt.GroupBy); len(g) > 0 {
			r.GroupBy, r.Groups = opt.GroupBy, g
		}
	}
	return r
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) { return utils.PrettyJSON(r) }
