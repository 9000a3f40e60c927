package web

import (
	"encoding/json"
	"net/http"
	"time"

	"gpuwatch/internal/poll"
)

// hostEntry is the per-host JSON payload. Hosts that have never been polled
// carry only their alias and polled=false, so clients can tell "waiting for
// first poll" apart from "last poll failed".
type hostEntry struct {
	Host      string         `json:"host"`
	Polled    bool           `json:"polled"`
	Stale     bool           `json:"stale,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Status    string         `json:"status,omitempty"`
	GPUs      []poll.Reading `json:"gpus,omitempty"`
	Processes []poll.Process `json:"processes,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	now := time.Now()
	staleCutoff := 2 * s.interval

	entries := make([]hostEntry, 0, len(s.hosts))
	for _, alias := range s.hosts {
		result, polled := snap.Results[alias]
		if !polled {
			entries = append(entries, hostEntry{Host: alias})
			continue
		}

		ts := result.Timestamp
		entries = append(entries, hostEntry{
			Host:      alias,
			Polled:    true,
			Stale:     now.Sub(result.Timestamp) > staleCutoff,
			Timestamp: &ts,
			Status:    result.Status.String(),
			GPUs:      result.Readings,
			Processes: result.Processes,
			Error:     result.Detail,
		})
	}

	writeJSON(w, entries)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := poll.Summarize(s.cache.Snapshot(), s.hosts, time.Now(), s.interval)
	writeJSON(w, summary)
}

// handleHealthz reports ready once the first poll cycle has completed.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.cache.Snapshot().CycleTime.IsZero() {
		http.Error(w, "waiting for first poll cycle", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
