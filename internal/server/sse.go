package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autodub/internal/logging"
)

// handleStatus streams job snapshots as Server-Sent Events. One event is
// emitted per observed change (dedup on the serialized form); the stream
// closes itself after the terminal snapshot. Store notifications wake the
// stream; a poll ticker bounds staleness if a notification is coalesced away.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r, "/api/status/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if _, ok := s.store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes, cancel := s.store.Subscribe(id)
	defer cancel()

	pollInterval := time.Duration(s.cfg.Workflow.StreamPollMillis) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastSent string
	emit := func() (terminal bool) {
		job, ok := s.store.Get(id)
		if !ok {
			return true
		}
		payload, err := json.Marshal(job)
		if err != nil {
			s.logger.Error("failed to marshal snapshot", logging.Error(err))
			return true
		}
		if string(payload) == lastSent {
			return job.Status.IsTerminal() && lastSent != ""
		}
		lastSent = string(payload)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return job.Status.IsTerminal()
	}

	if emit() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if emit() {
				return
			}
		case <-ticker.C:
			if emit() {
				return
			}
		}
	}
}
