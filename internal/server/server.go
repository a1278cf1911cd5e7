package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/pipeline"
)

const (
	// defaultMaxConcurrentAudits caps audits running at the same time.
	// Each audit drives its own browser.
	defaultMaxConcurrentAudits = 2

	// defaultJobHistory is how many asynchronous jobs are remembered.
	defaultJobHistory = 256

	// defaultAuditTimeout bounds a single audit started through the API.
	defaultAuditTimeout = 10 * time.Minute

	// maxRequestBody limits POST bodies.
	maxRequestBody = 64 << 10
)

// AuditFunc runs one audit of startURL crawling at most maxPages pages.
// A maxPages below 1 uses the configured default.
type AuditFunc func(ctx context.Context, startURL string, maxPages int, sink pipeline.Sink) (*model.Audit, error)

// FromAuditor adapts a pipeline.Auditor to an AuditFunc.
func FromAuditor(a *pipeline.Auditor) AuditFunc {
	return func(ctx context.Context, startURL string, maxPages int, sink pipeline.Sink) (*model.Audit, error) {
		return a.WithMaxPages(maxPages).Run(ctx, startURL, sink)
	}
}

// Store is the subset of the history database the API reads.
type Store interface {
	FindAudit(ctx context.Context, idOrPrefix string) (*model.Audit, error)
	History(ctx context.Context, host string, limit int) ([]model.AuditBrief, error)
	ListHosts(ctx context.Context) ([]string, error)
	PageTrend(ctx context.Context, pageURL string, limit int) ([]database.PageSnapshot, error)
	DeleteAudit(ctx context.Context, id uuid.UUID) error
}

// Server is the HTTP API of seoaudit.
type Server struct {
	audit        AuditFunc
	store        Store
	metrics      *pipeline.Metrics
	jobs         *jobTracker
	slots        *semaphore.Weighted
	auditTimeout time.Duration
	maxPages     int
	logger       *slog.Logger

	// baseCtx parents every asynchronous audit; cancel stops them on shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the history endpoints.
func WithStore(s Store) Option {
	return func(srv *Server) {
		srv.store = s
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *pipeline.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// WithMaxConcurrentAudits caps how many audits run at once. Requests over
// the cap are rejected with 429.
func WithMaxConcurrentAudits(n int) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithAuditTimeout bounds each audit.
func WithAuditTimeout(d time.Duration) Option {
	return func(srv *Server) {
		if d > 0 {
			srv.auditTimeout = d
		}
	}
}

// WithMaxPagesLimit caps the max_pages a client may request.
func WithMaxPagesLimit(n int) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxPages = n
		}
	}
}

// WithJobHistory sets how many asynchronous jobs are remembered.
func WithJobHistory(n int) Option {
	return func(srv *Server) {
		srv.jobs = newJobTracker(n)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// New creates a Server that runs audits with audit.
func New(audit AuditFunc, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		audit:        audit,
		jobs:         newJobTracker(defaultJobHistory),
		slots:        semaphore.NewWeighted(defaultMaxConcurrentAudits),
		auditTimeout: defaultAuditTimeout,
		maxPages:     100,
		logger:       slog.Default(),
		baseCtx:      ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Routes returns the router serving the API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/audits", s.handleCreateAudit)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/audits", s.handleListAudits)
			r.Get("/audits/{id}", s.handleGetAudit)
			r.Get("/audits/{id}/report", s.handleAuditReport)
			r.Delete("/audits/{id}", s.handleDeleteAudit)
			r.Get("/hosts", s.handleListHosts)
			r.Get("/pages/trend", s.handlePageTrend)
		})
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is done, then shuts
// down gracefully and cancels running audits.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close cancels every running asynchronous audit.
func (s *Server) Close() {
	s.cancel()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, http.StatusNotImplemented, errors.New("audit history is disabled"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
