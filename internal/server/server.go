// Package server exposes the analytics views of the current dataset over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/KaramelBytes/scorelens-cli/internal/cache"
	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Options configures a Server.
type Options struct {
	Addr   string
	Loader *dataset.Loader
	// Cache memoizes views per dataset fingerprint. Nil disables caching.
	Cache    cache.Store
	CacheTTL time.Duration
	// Views carries thresholds, bands, bins and the group column.
	Views report.Options
	// MaxUpload caps upload bodies in bytes; 0 means 32 MiB.
	MaxUpload int64
	Log       logrus.FieldLogger
	// Registry receives the server metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server serves one dataset snapshot at a time. Uploads replace the snapshot
// atomically; in-flight requests keep the snapshot they started with.
type Server struct {
	opt     Options
	log     logrus.FieldLogger
	data    atomic.Pointer[dataset.Dataset]
	metrics *metrics
	router  http.Handler
}

// New builds a server without a dataset.
func New(opt Options) *Server {
	if opt.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opt.Log = l
	}
	if opt.Loader == nil {
		opt.Loader = dataset.NewLoader(opt.Log)
	}
	if opt.MaxUpload <= 0 {
		opt.MaxUpload = 32 << 20
	}
	if opt.Registry == nil {
		opt.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		opt:     opt,
		log:     opt.Log.WithField("component", "server"),
		metrics: newMetrics(opt.Registry),
	}
	s.router = s.routes()
	return s
}

// SetDataset publishes ds as the current snapshot.
func (s *Server) SetDataset(ds *dataset.Dataset) {
	s.data.Store(ds)
	s.metrics.students.Set(float64(ds.Len()))
	s.log.WithFields(logrus.Fields{
		"dataset_id":  ds.ID(),
		"name":        ds.Name(),
		"students":    ds.Len(),
		"fingerprint": fmt.Sprintf("%016x", ds.Fingerprint()),
	}).Info("dataset published")
}

// Dataset returns the current snapshot or nil.
func (s *Server) Dataset() *dataset.Dataset { return s.data.Load() }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opt.Registry, promhttp.HandlerOpts{}))

	r.Get("/get_data", s.withData(s.getData))
	r.Post("/upload", s.upload)
	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.withData(s.overview))
		r.Get("/subject_performance", s.withData(s.subjectPerformance))
		r.Get("/student_performance/{id}", s.withData(s.studentPerformance))
		r.Get("/top_students", s.withData(s.topStudents))
		r.Get("/subject_distribution", s.withData(s.subjectDistribution))
		r.Get("/correlation_matrix", s.withData(s.correlationMatrix))
		r.Get("/performance_by_grade", s.withData(s.performanceByGrade))
		r.Get("/fit", s.withData(s.fit))
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.opt.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
