// Package server exposes the service over HTTP: job submission, status
// polling, one-time file delivery, and the embedded submission form.
package server

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/Ethica-Project/EthicaDL/internal/config"
	"github.com/Ethica-Project/EthicaDL/internal/download"
	"github.com/Ethica-Project/EthicaDL/internal/logging"
)

//go:embed static/index.html
var staticFS embed.FS

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the service
type Server struct {
	cfg    *config.Settings
	jobs   download.Downloader
	logger logging.Logger
	mux    *http.ServeMux
}

// New creates the HTTP server and registers its routes
func New(cfg *config.Settings, jobs download.Downloader, logger logging.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		jobs:   jobs,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/download", s.handleSubmit)
	s.mux.HandleFunc("DELETE /api/download/{id}", s.handleCancel)
	s.mux.HandleFunc("GET /api/status/{id}", s.handleStatus)
	s.mux.HandleFunc("GET /api/file/{id}", s.handleFile)
	s.mux.HandleFunc("HEAD /api/file/{id}", s.handleFile)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

// Handler returns the route table, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
