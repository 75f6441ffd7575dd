package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/cache"
	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
	_, _ = w.Write([]byte{'\n'})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dataHandler func(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset)

// withData pins the current snapshot for the whole request.
func (s *Server) withData(h dataHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := s.data.Load()
		if ds == nil {
			writeError(w, http.StatusNotFound, "No data available")
			return
		}
		h(w, r, ds)
	}
}

// serveView writes the JSON of compute(), memoized per snapshot fingerprint.
// Views that fail to encode are answered with 500 and not cached.
func (s *Server) serveView(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset, view string, params []string, compute func() any) {
	build := func() (json.RawMessage, error) {
		return json.Marshal(compute())
	}
	key := cache.Key(ds.Fingerprint(), view, params...)
	raw, hit, err := cache.Memo(r.Context(), s.opt.Cache, s.log, key, s.opt.CacheTTL, build)
	if s.opt.Cache != nil {
		if hit {
			s.metrics.cache.WithLabelValues("hit").Inc()
		} else {
			s.metrics.cache.WithLabelValues("miss").Inc()
		}
	}
	if err != nil {
		s.fail(w, view, err)
		return
	}
	writeRaw(w, raw)
}

func (s *Server) fail(w http.ResponseWriter, view string, err error) {
	s.log.WithError(err).WithField("view", view).Error("encode view")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) getData(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	s.serveView(w, r, ds, "data", nil, func() any {
		return map[string]any{
			"students": ds.Records(),
			"subjects": ds.Subjects(),
		}
	})
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	s.serveView(w, r, ds, "overview", nil, func() any { return stats.Overview(ds) })
}

type subjectPerformance struct {
	Subject   string   `json:"subject"`
	Count     int      `json:"count"`
	Average   *float64 `json:"average"`
	Median    *float64 `json:"median"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	BelowPass int      `json:"below_60"`
	Excellent int      `json:"above_90"`
}

// subjectPerformance keeps the dashboard's below_60/above_90 keys; the counts
// follow the configured thresholds.
func (s *Server) subjectPerformance(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	th := s.thresholds()
	s.serveView(w, r, ds, "subject_performance", []string{ftoa(th.Pass), ftoa(th.Excellent)}, func() any {
		perf := stats.SubjectPerformance(ds, th)
		out := make([]subjectPerformance, len(perf))
		for i, p := range perf {
			out[i] = subjectPerformance{
				Subject:   p.Subject,
				Count:     p.Summary.Count,
				BelowPass: p.BelowPass,
				Excellent: p.Excellent,
			}
			if p.Summary.OK() {
				sm := p.Summary
				out[i].Average, out[i].Median, out[i].Min, out[i].Max = &sm.Mean, &sm.Median, &sm.Min, &sm.Max
			}
		}
		return out
	})
}

func (s *Server) studentPerformance(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	key := chi.URLParam(r, "id")
	i, ok := stats.FindStudent(ds, key)
	if !ok {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	s.serveView(w, r, ds, "student", []string{strconv.Itoa(i)}, func() any { return stats.StudentProfile(ds, i) })
}

func (s *Server) topStudents(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	k := s.opt.Views.TopK
	if k <= 0 {
		k = 10
	}
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		k = n
	}
	s.serveView(w, r, ds, "top_students", []string{strconv.Itoa(k)}, func() any { return stats.Rank(ds, k) })
}

type bandCounts struct {
	Ranges []string `json:"ranges"`
	Counts []int    `json:"counts"`
}

func (s *Server) subjectDistribution(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	bands := s.opt.Views.Bands
	if bands == nil {
		bands = stats.DefaultBands()
	}
	labels := make([]string, len(bands))
	for i, b := range bands {
		labels[i] = b.Label
	}
	s.serveView(w, r, ds, "subject_distribution", []string{strings.Join(labels, ",")}, func() any {
		out := make(map[string]bandCounts, ds.NumSubjects())
		for _, subj := range ds.Subjects() {
			bc := bandCounts{Ranges: labels, Counts: make([]int, len(bands))}
			for i, b := range stats.Distribution(ds, subj, bands) {
				bc.Counts[i] = b.Count
			}
			out[subj] = bc
		}
		return out
	})
}

func (s *Server) correlationMatrix(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	s.serveView(w, r, ds, "correlation_matrix", nil, func() any {
		m := stats.CorrelationMatrix(ds)
		for i := range m.Values {
			for j := range m.Values[i] {
				m.Values[i][j] = round2(m.Values[i][j])
			}
		}
		return m
	})
}

type gradePerformance struct {
	Grade       string              `json:"grade"`
	Size        int                 `json:"size"`
	Performance map[string]*float64 `json:"performance"`
}

func (s *Server) performanceByGrade(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	column := s.opt.Views.GroupBy
	if c := r.URL.Query().Get("by"); c != "" {
		column = c
	}
	groups := stats.GroupMeans(ds, column)
	if column == "" || len(groups) == 0 {
		writeError(w, http.StatusNotFound, "No grade data available")
		return
	}
	s.serveView(w, r, ds, "performance_by_grade", []string{column}, func() any {
		out := make([]gradePerformance, len(groups))
		for i, g := range groups {
			out[i] = gradePerformance{Grade: g.Key, Size: g.Size, Performance: make(map[string]*float64, len(g.Means))}
			for _, m := range g.Means {
				if m.Count == 0 {
					out[i].Performance[m.Subject] = nil
					continue
				}
				v := m.Mean
				out[i].Performance[m.Subject] = &v
			}
		}
		return out
	})
}

type fitResponse struct {
	report.FitView
	Line   *[4]float64    `json:"line,omitempty"`
	Points []stats.Point `json:"points"`
}

func (s *Server) fit(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset) {
	q := r.URL.Query()
	x, y := q.Get("x"), q.Get("y")
	if x == "" || y == "" {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	for _, subj := range []string{x, y} {
		if _, ok := ds.SubjectIndex(subj); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown subject %q", subj))
			return
		}
	}
	threshold := s.opt.Views.TrendThreshold
	if threshold <= 0 {
		threshold = stats.DefaultTrendThreshold
	}
	s.serveView(w, r, ds, "fit", []string{x, y, ftoa(threshold)}, func() any {
		f := stats.LinearFit(ds, x, y)
		resp := fitResponse{FitView: report.FitView{Fit: f, Trend: f.Trend(threshold)}, Points: stats.Scatter(ds, x, y)}
		if resp.Trend {
			x0, y0, x1, y1 := f.Line()
			resp.Line = &[4]float64{x0, y0, x1, y1}
		}
		return resp
	})
}

type uploadResponse struct {
	DatasetID   string   `json:"dataset_id"`
	Name        string   `json:"name"`
	Students    int      `json:"students"`
	Subjects    []string `json:"subjects"`
	Fingerprint string   `json:"fingerprint"`
}

// upload replaces the current dataset with a multipart "file" field.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if name == "" || name == "." || !dataset.Supported(name) {
		writeError(w, http.StatusBadRequest, "upload a .csv, .tsv or .xlsx file")
		return
	}
	ds, err := s.opt.Loader.Load(file, name)
	if err != nil {
		s.log.WithError(err).WithField("file", name).Warn("upload rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.SetDataset(ds)
	writeJSON(w, http.StatusCreated, uploadResponse{
		DatasetID:   ds.ID(),
		Name:        ds.Name(),
		Students:    ds.Len(),
		Subjects:    ds.Subjects(),
		Fingerprint: fmt.Sprintf("%016x", ds.Fingerprint()),
	})
}

func (s *Server) thresholds() stats.Thresholds {
	if s.opt.Views.Thresholds == (stats.Thresholds{}) {
		return stats.DefaultThresholds()
	}
	return s.opt.Views.Thresholds
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
