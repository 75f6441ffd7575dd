package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/scorelens-cli/internal/cache"
	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marks = `Unique ID,Name,Seat Number,Math,Science,English,SUPW
101,Asha,S1,90,85,70,A
102,Ben,S2,60,65,,B
103,Chen,S3,75,n/a,80,A
104,Dev,S4,40,50,45,B
`

func newTestServer(t *testing.T, withData bool) *Server {
	t.Helper()
	s := New(Options{Cache: cache.NewMemory(), Views: report.DefaultOptions()})
	if withData {
		ds, err := dataset.NewLoader(nil).Load(strings.NewReader(marks), "marks.csv")
		require.NoError(t, err)
		s.SetDataset(ds)
	}
	return s
}

func get(t *testing.T, s *Server, path string, dest any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if dest != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
	}
	return rec.Code
}

func TestNoDataReturns404(t *testing.T) {
	s := newTestServer(t, false)
	for _, path := range []string{
		"/get_data", "/api/overview", "/api/subject_performance", "/api/student_performance/1",
		"/api/top_students", "/api/subject_distribution", "/api/correlation_matrix",
		"/api/performance_by_grade", "/api/fit?x=a&y=b",
	} {
		var body errorResponse
		assert.Equal(t, http.StatusNotFound, get(t, s, path, &body), path)
		assert.Equal(t, "No data available", body.Error, path)
	}
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz", nil))
}

func TestGetData(t *testing.T) {
	s := newTestServer(t, true)
	var body struct {
		Students []map[string]any `json:"students"`
		Subjects []string         `json:"subjects"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/get_data", &body))
	assert.Equal(t, []string{"Math", "Science", "English"}, body.Subjects)
	require.Len(t, body.Students, 4)
	assert.Equal(t, "", body.Students[1]["English"])
	assert.Equal(t, "A", body.Students[0]["SUPW"])
}

func TestSubjectPerformance(t *testing.T) {
	s := newTestServer(t, true)
	var body []subjectPerformance
	require.Equal(t, http.StatusOK, get(t, s, "/api/subject_performance", &body))
	require.Len(t, body, 3)
	m := body[0]
	assert.Equal(t, "Math", m.Subject)
	require.NotNil(t, m.Average)
	assert.Equal(t, 66.25, *m.Average)
	assert.Equal(t, 67.5, *m.Median)
	assert.Equal(t, 1, m.BelowPass)
	assert.Equal(t, 1, m.Excellent)
	assert.Equal(t, 3, body[1].Count, "n/a is excluded")
}

func TestStudentPerformance(t *testing.T) {
	s := newTestServer(t, true)
	var body struct {
		Name        string `json:"name"`
		Rank        int    `json:"rank"`
		Performance []struct {
			Subject      string  `json:"subject"`
			Score        float64 `json:"score"`
			ClassAverage float64 `json:"class_average"`
		} `json:"performance"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/student_performance/102", &body))
	assert.Equal(t, "Ben", body.Name)
	require.Len(t, body.Performance, 2)
	assert.Equal(t, 66.25, body.Performance[0].ClassAverage)

	var e errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/student_performance/999", &e))
	assert.Equal(t, "Student not found", e.Error)
}

func TestTopStudents(t *testing.T) {
	s := newTestServer(t, true)
	var body []map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/api/top_students?k=2", &body))
	require.Len(t, body, 2)
	assert.Equal(t, "Asha", body[0]["name"])
	assert.Equal(t, 245.0, body[0]["total_score"])

	require.Equal(t, http.StatusOK, get(t, s, "/api/top_students?k=0", &body))
	assert.Empty(t, body)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/top_students?k=x", nil))
}

func TestSubjectDistribution(t *testing.T) {
	s := newTestServer(t, true)
	var body map[string]bandCounts
	require.Equal(t, http.StatusOK, get(t, s, "/api/subject_distribution", &body))
	m := body["Math"]
	require.Len(t, m.Ranges, 8)
	assert.Equal(t, "90-100", m.Ranges[0])
	assert.Equal(t, []int{1, 0, 1, 1, 0, 1, 0, 0}, m.Counts)
}

func TestCorrelationMatrixRounded(t *testing.T) {
	s := newTestServer(t, true)
	var body struct {
		Subjects []string    `json:"subjects"`
		Matrix   [][]float64 `json:"matrix"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/correlation_matrix", &body))
	require.Len(t, body.Matrix, 3)
	for i := range body.Matrix {
		assert.Equal(t, 1.0, body.Matrix[i][i])
		for j := range body.Matrix {
			v := body.Matrix[i][j]
			assert.Equal(t, v, body.Matrix[j][i])
			assert.InDelta(t, math.Round(v*100)/100, v, 1e-12)
		}
	}
}

func TestPerformanceByGrade(t *testing.T) {
	s := newTestServer(t, true)
	var body []gradePerformance
	require.Equal(t, http.StatusOK, get(t, s, "/api/performance_by_grade", &body))
	require.Len(t, body, 2)
	assert.Equal(t, "A", body[0].Grade)
	require.NotNil(t, body[0].Performance["Math"])
	assert.Equal(t, 82.5, *body[0].Performance["Math"])
	require.NotNil(t, body[1].Performance["English"])
	assert.Equal(t, 45.0, *body[1].Performance["English"], "Ben has no English score")

	var e errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/performance_by_grade?by=House", &e))
	assert.Equal(t, "No grade data available", e.Error)
}

func TestFit(t *testing.T) {
	s := newTestServer(t, true)
	var body struct {
		N      int         `json:"n"`
		OK     bool        `json:"ok"`
		Trend  bool        `json:"trend"`
		Slope  float64     `json:"slope"`
		Line   *[4]float64 `json:"line"`
		Points []any       `json:"points"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/fit?x=Math&y=Science", &body))
	assert.Equal(t, 3, body.N)
	assert.True(t, body.OK)
	assert.True(t, body.Trend)
	assert.Greater(t, body.Slope, 0.0)
	require.NotNil(t, body.Line)
	assert.Equal(t, 40.0, body.Line[0])
	assert.Len(t, body.Points, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/fit?x=Math", nil))
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/fit?x=Math&y=Art", nil))
}

func TestViewCacheAndMetrics(t *testing.T) {
	s := newTestServer(t, true)
	var a, b map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/api/overview", &a))
	require.Equal(t, http.StatusOK, get(t, s, "/api/overview", &b))
	assert.Equal(t, a, b)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.cache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.cache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("/api/overview", "200")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.metrics.students))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "scorelens_view_cache_total")
}

func upload(t *testing.T, s *Server, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = io.WriteString(fw, content)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUploadSwapsSnapshot(t *testing.T) {
	s := newTestServer(t, false)
	rec := upload(t, s, "marks.csv", marks)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var up uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, 4, up.Students)
	assert.Equal(t, "marks.csv", up.Name)
	first := s.Dataset()
	require.NotNil(t, first)

	rec = upload(t, s, "next.csv", "Name,Physics\nZoe,99\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotSame(t, first, s.Dataset())
	assert.Equal(t, 4, first.Len(), "earlier snapshot is untouched")

	var ov map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/api/overview", &ov))
	assert.EqualValues(t, 1, ov["total_students"])

	assert.Equal(t, http.StatusBadRequest, upload(t, s, "notes.txt", "x").Code)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	s := New(Options{MaxUpload: 64})
	rec := upload(t, s, "marks.csv", marks+strings.Repeat("x", 256))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFailedViewIsNotCached(t *testing.T) {
	s := newTestServer(t, true)
	ds := s.Dataset()
	calls := 0
	compute := func() any {
		calls++
		if calls == 1 {
			return math.Inf(1)
		}
		return 42
	}
	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.serveView(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), ds, "flaky", nil, compute)
		return rec
	}
	assert.Equal(t, http.StatusInternalServerError, serve().Code)
	rec := serve()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", strings.TrimSpace(rec.Body.String()))
	assert.Equal(t, 2, calls)
}

func TestHugeScoresStayEncodable(t *testing.T) {
	s := newTestServer(t, false)
	rec := upload(t, s, "huge.csv", "Name,Math,Art\nA,1e308,1\nB,1e308,2\nC,1e308,3\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for i := 0; i < 2; i++ {
		var body []subjectPerformance
		require.Equal(t, http.StatusOK, get(t, s, "/api/subject_performance", &body))
		require.NotEmpty(t, body)
	}
	var ov map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/api/overview", &ov))
}
