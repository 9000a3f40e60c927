package poll

import (
	"encoding/json"
	"time"
)

// Status classifies the outcome of one poll attempt against one host.
type Status int

const (
	// StatusOk means the command ran and its output parsed cleanly.
	StatusOk Status = iota
	// StatusUnreachable means the host could not be reached or authenticated,
	// or the command produced no usable output.
	StatusUnreachable
	// StatusTimeout means the command did not complete within the budget.
	StatusTimeout
	// StatusParseError means the tool output was malformed or inconsistent.
	StatusParseError
)

// String returns the lowercase wire name for the status.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusUnreachable:
		return "unreachable"
	case StatusTimeout:
		return "timeout"
	case StatusParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Reading is one physical accelerator device on one host at one poll instant.
// All values are point-in-time snapshots, not deltas.
type Reading struct {
	Index            int     `json:"index"`
	Name             string  `json:"name"`
	BusID            string  `json:"bus_id"`
	UtilizationPct   float64 `json:"utilization_pct"`
	MemoryUsedBytes  int64   `json:"memory_used_bytes"`
	MemoryTotalBytes int64   `json:"memory_total_bytes"`
	TemperatureC     *int    `json:"temperature_c,omitempty"`
}

// Process is one compute process holding memory on one accelerator, with the
// owning username resolved through a follow-up ps lookup. User is "unknown"
// when the process exited between the two queries or ps was unavailable.
type Process struct {
	GPUIndex        int    `json:"gpu_index"`
	PID             int    `json:"pid"`
	User            string `json:"user"`
	Command         string `json:"command"`
	MemoryUsedBytes int64  `json:"memory_used_bytes"`
}

// Result is the outcome of one poll attempt against one host. Readings is
// nil unless Status is StatusOk; Detail is set iff Status is not StatusOk.
// Processes is the best-effort compute-process list for an Ok result; device
// stats can be Ok while the process list is empty. Results are never mutated
// after construction.
type Result struct {
	Host      string    `json:"host"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Readings  []Reading `json:"gpus,omitempty"`
	Processes []Process `json:"processes,omitempty"`
	Detail    string    `json:"error,omitempty"`
}

// Ok reports whether the poll succeeded.
func (r Result) Ok() bool {
	return r.Status == StatusOk
}

// Snapshot is a point-in-time, read-only copy of the cache: the most recent
// Result per polled host plus the completion time of the latest cycle.
// CycleTime is zero before the first cycle completes.
type Snapshot struct {
	Results   map[string]Result
	CycleTime time.Time
}

// Summary is the cluster-wide aggregate derived from one Snapshot.
type Summary struct {
	Hosts        int `json:"hosts"`
	Ok           int `json:"ok"`
	Unreachable  int `json:"unreachable"`
	Timeout      int `json:"timeout"`
	ParseError   int `json:"parse_error"`
	NeverPolled  int `json:"never_polled"`
	Accelerators int `json:"accelerators"`

	// Memory totals are summed across Ok hosts only.
	MemoryUsedBytes  int64 `json:"memory_used_bytes"`
	MemoryTotalBytes int64 `json:"memory_total_bytes"`

	// Stale flags hosts whose last result is older than twice the poll
	// interval. Never-polled hosts are absent from the map.
	Stale map[string]bool `json:"stale"`

	CycleTime time.Time `json:"cycle_time"`
}
