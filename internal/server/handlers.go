package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"autodub/internal/deps"
	"autodub/internal/jobs"
	"autodub/internal/language"
	"autodub/internal/services"
)

type dubRequest struct {
	URL      string `json:"url"`
	Lang     string `json:"lang"`
	Gender   string `json:"gender"`
	GPU      bool   `json:"gpu"`
	Subtitle bool   `json:"subtitle"`
}

func (s *Server) handleDub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dubRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.runner.Start(jobs.Params{
		URL:      req.URL,
		Lang:     req.Lang,
		Gender:   req.Gender,
		GPU:      req.GPU,
		Subtitle: req.Subtitle,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r, "/api/job/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if job, ok := s.store.Get(id); ok {
		s.writeJSON(w, http.StatusOK, job)
		return
	}
	// Jobs that finished before a restart survive only in the archive.
	if s.history != nil {
		if job, err := s.history.Get(r.Context(), id); err == nil && job != nil {
			s.writeJSON(w, http.StatusOK, job)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "job not found")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r, "/api/download/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, ok := s.store.Get(id)
	if !ok && s.history != nil {
		if archived, err := s.history.Get(r.Context(), id); err == nil && archived != nil {
			job, ok = *archived, true
		}
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusComplete || job.OutputFile == "" {
		s.writeError(w, http.StatusBadRequest, "job has no output yet")
		return
	}
	if _, err := os.Stat(job.OutputFile); err != nil {
		s.writeError(w, http.StatusNotFound, "output file no longer exists")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputFile)))
	http.ServeFile(w, r, job.OutputFile)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r, "/api/cancel/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status.IsTerminal() {
		s.writeError(w, http.StatusConflict, "job already finished")
		return
	}
	if !s.runner.Cancel(id) {
		s.writeError(w, http.StatusConflict, "job already finished")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": "canceling"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	statuses := s.checker()
	missing := deps.MissingRequired(statuses)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":           len(missing) == 0,
		"missing":      missing,
		"dependencies": statuses,
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	targets := language.All()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"languages": targets,
		"count":     len(targets),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func pathSuffix(r *http.Request, prefix string) string {
	suffix := strings.TrimPrefix(r.URL.Path, prefix)
	if suffix == "" || strings.Contains(suffix, "/") {
		return ""
	}
	return suffix
}
