// Package api serves the reportflow HTTP API.
//
// All routes live under /api/v1 and answer with JSON, except exports, which
// stream the rendered file or a zip archive. Every response carries
// Cache-Control: no-store. Failures use one envelope:
//
//	{"ok": false, "code": "REPORT_NOT_FOUND", "error": "...", "debugId": "..."}
//
// A rejected layout is not a failure of the request: POST /layout/validate
// answers 200 with {ok: false, issues, audit}. Creating or regenerating a
// report whose layout is rejected stores it as validation_failed and answers
// 422 with code LAYOUT_VALIDATION_FAILED and the same issues.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/reportflow/pkg/export"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// ExportFormat is used by the export route when the request names none.
	ExportFormat string
	// BatchFormats is used by the batch route when the request names none.
	BatchFormats []string
	// BatchConcurrency bounds parallel renders per batch.
	BatchConcurrency int
	// Stats, when set, is reported under "stats" by /healthz.
	Stats func() map[string]int64
}

func (o *Options) setDefaults() {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 60 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 2 << 20
	}
	if o.ExportFormat == "" {
		o.ExportFormat = pipeline.FormatPDF
	}
	if len(o.BatchFormats) == 0 {
		o.BatchFormats = []string{o.ExportFormat}
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = export.DefaultConcurrency
	}
}

// Server wires the report service and exporter to HTTP routes.
type Server struct {
	service  *store.Service
	exporter *export.Exporter
	logger   *log.Logger
	opts     Options
	router   chi.Router
}

// New creates a server. The exporter must share the service's store.
func New(service *store.Service, exporter *export.Exporter, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	opts.setDefaults()
	s := &Server{
		service:  service,
		exporter: exporter,
		logger:   logger,
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(noStore)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/layout/validate", s.handleValidate)

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", s.handleCreateReport)
			r.Get("/", s.handleListReports)
			r.Route("/{reportID}", func(r chi.Router) {
				r.Get("/", s.handleGetReport)
				r.Post("/regenerate", s.handleRegenerate)
				r.Get("/export", s.handleExport)
			})
		})

		r.Post("/export/batch", s.handleBatch)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Error: "no route for " + r.Method + " " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "METHOD_NOT_ALLOWED", Error: r.Method + " is not allowed on " + r.URL.Path})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
