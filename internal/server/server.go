package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"autodub/internal/config"
	"autodub/internal/deps"
	"autodub/internal/jobs"
	"autodub/internal/logging"
	"autodub/internal/pipeline"
)

// JobRunner is the pipeline surface the HTTP layer drives.
type JobRunner interface {
	Start(params jobs.Params) (jobs.Job, error)
	Cancel(id string) bool
}

// HistoryReader serves snapshots of jobs that finished before a restart.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// Server hosts the HTTP API and enforces single-instance execution.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	runner  JobRunner
	history HistoryReader // optional

	lock     *flock.Flock
	listener net.Listener
	server   *http.Server

	// checker is swappable so tests do not need real binaries on PATH.
	checker func() []deps.Status
}

func New(cfg *config.Config, store *jobs.Store, runner JobRunner, history HistoryReader, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "server"),
		store:   store,
		runner:  runner,
		history: history,
		lock:    flock.New(filepath.Join(cfg.Paths.LogDir, "autodub.lock")),
	}
	s.checker = func() []deps.Status {
		return deps.CheckBinaries(deps.Requirements(cfg))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/dub", s.handleDub)
	mux.HandleFunc("/api/status/", s.handleStatus)
	mux.HandleFunc("/api/job/", s.handleJob)
	mux.HandleFunc("/api/download/", s.handleDownload)
	mux.HandleFunc("/api/cancel/", s.handleCancel)
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/api/languages", s.handleLanguages)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// SSE streams outlive any sane write timeout; WriteTimeout stays
		// unset and the handlers bound their own work instead.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start acquires the instance lock and begins serving. The listener address
// is available from Addr once Start returns.
func (s *Server) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another autodub instance is already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Paths.Bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("listen on %s: %w", s.cfg.Paths.Bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully and releases the instance lock.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release instance lock", logging.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

var _ JobRunner = (*pipeline.Runner)(nil)
