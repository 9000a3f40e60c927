package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpuwatch/internal/poll"
)

func temp(v int) *int { return &v }

func newTestServer(t *testing.T, hosts []string) (*Server, *poll.Cache) {
	t.Helper()
	cache := poll.NewCache()
	return New("127.0.0.1:0", hosts, 5*time.Second, cache, nil), cache
}

func doGET(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHostsEmptyCache(t *testing.T) {
	s, _ := newTestServer(t, []string{"gpu-a", "gpu-b"})

	rec := doGET(t, s, "/api/hosts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var entries []hostEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "gpu-a", entries[0].Host)
	assert.False(t, entries[0].Polled)
	assert.Nil(t, entries[0].Timestamp)
	assert.Empty(t, entries[0].Status)
}

func TestHandleHostsMixedResults(t *testing.T) {
	s, cache := newTestServer(t, []string{"gpu-a", "gpu-b", "gpu-c"})

	now := time.Now()
	cache.Write(poll.Result{
		Host:      "gpu-a",
		Timestamp: now,
		Status:    poll.StatusOk,
		Readings: []poll.Reading{
			{Index: 0, Name: "NVIDIA A100", BusID: "00000000:07:00.0", UtilizationPct: 85, MemoryUsedBytes: 1 << 30, MemoryTotalBytes: 40 << 30, TemperatureC: temp(61)},
		},
		Processes: []poll.Process{
			{GPUIndex: 0, PID: 41337, User: "alice", Command: "python3", MemoryUsedBytes: 1 << 30},
		},
	})
	cache.Write(poll.Result{
		Host:      "gpu-b",
		Timestamp: now,
		Status:    poll.StatusTimeout,
		Detail:    "Command didn't finish in time",
	})
	cache.CompleteCycle(now)

	rec := doGET(t, s, "/api/hosts")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []hostEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	// Configured order is preserved.
	assert.Equal(t, "gpu-a", entries[0].Host)
	assert.Equal(t, "gpu-b", entries[1].Host)
	assert.Equal(t, "gpu-c", entries[2].Host)

	assert.True(t, entries[0].Polled)
	assert.Equal(t, "ok", entries[0].Status)
	assert.False(t, entries[0].Stale)
	require.Len(t, entries[0].GPUs, 1)
	assert.Equal(t, "NVIDIA A100", entries[0].GPUs[0].Name)
	require.Len(t, entries[0].Processes, 1)
	assert.Equal(t, "alice", entries[0].Processes[0].User)
	assert.Equal(t, "python3", entries[0].Processes[0].Command)
	assert.Empty(t, entries[0].Error)

	// Failed hosts carry no process list.
	assert.Empty(t, entries[1].Processes)

	assert.True(t, entries[1].Polled)
	assert.Equal(t, "timeout", entries[1].Status)
	assert.Contains(t, entries[1].Error, "didn't finish")
	assert.Empty(t, entries[1].GPUs)

	// gpu-c never polled: failure of its neighbours doesn't invent a result.
	assert.False(t, entries[2].Polled)
}

func TestHandleHostsStaleFlag(t *testing.T) {
	s, cache := newTestServer(t, []string{"gpu-a"})

	cache.Write(poll.Result{
		Host:      "gpu-a",
		Timestamp: time.Now().Add(-time.Minute),
		Status:    poll.StatusOk,
		Readings:  []poll.Reading{},
	})

	rec := doGET(t, s, "/api/hosts")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []hostEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Stale)
}

func TestHandleSummary(t *testing.T) {
	s, cache := newTestServer(t, []string{"gpu-a", "gpu-b"})

	now := time.Now()
	cache.Write(poll.Result{
		Host:      "gpu-a",
		Timestamp: now,
		Status:    poll.StatusOk,
		Readings: []poll.Reading{
			{Index: 0, Name: "NVIDIA L4", UtilizationPct: 10, MemoryUsedBytes: 2 << 30, MemoryTotalBytes: 24 << 30},
			{Index: 1, Name: "NVIDIA L4", UtilizationPct: 95, MemoryUsedBytes: 20 << 30, MemoryTotalBytes: 24 << 30},
		},
	})
	cache.CompleteCycle(now)

	rec := doGET(t, s, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary poll.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))

	assert.Equal(t, 2, summary.Hosts)
	assert.Equal(t, 1, summary.Ok)
	assert.Equal(t, 1, summary.NeverPolled)
	assert.Equal(t, 2, summary.Accelerators)
	assert.Equal(t, int64(22<<30), summary.MemoryUsedBytes)
	assert.Equal(t, int64(48<<30), summary.MemoryTotalBytes)
}

func TestHandleHealthz(t *testing.T) {
	s, cache := newTestServer(t, []string{"gpu-a"})

	rec := doGET(t, s, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	cache.CompleteCycle(time.Now())

	rec = doGET(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table")
}

func TestMetricsEndpoint(t *testing.T) {
	s, cache := newTestServer(t, []string{"gpu-a", "gpu-b"})

	now := time.Now()
	cache.Write(poll.Result{
		Host:      "gpu-a",
		Timestamp: now,
		Status:    poll.StatusOk,
		Readings: []poll.Reading{
			{Index: 0, Name: "NVIDIA A100", UtilizationPct: 42, MemoryUsedBytes: 1 << 30, MemoryTotalBytes: 40 << 30, TemperatureC: temp(55)},
		},
	})
	cache.Write(poll.Result{
		Host:      "gpu-b",
		Timestamp: now,
		Status:    poll.StatusUnreachable,
		Detail:    "dial tcp: connection refused",
	})
	cache.CompleteCycle(now)

	rec := doGET(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `gpuwatch_gpu_utilization_percent{gpu="0",host="gpu-a",name="NVIDIA A100"} 42`)
	assert.Contains(t, body, `gpuwatch_gpu_temperature_celsius{gpu="0",host="gpu-a",name="NVIDIA A100"} 55`)
	assert.Contains(t, body, `gpuwatch_host_up{host="gpu-a",status="ok"} 1`)
	assert.Contains(t, body, `gpuwatch_host_up{host="gpu-b",status="unreachable"} 0`)
	assert.Contains(t, body, "gpuwatch_last_cycle_timestamp_seconds")
}

func TestMetricsSkipsNeverPolledHosts(t *testing.T) {
	s, _ := newTestServer(t, []string{"gpu-a"})

	rec := doGET(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "gpuwatch_host_up{"))
	assert.False(t, strings.Contains(rec.Body.String(), "gpuwatch_gpu_utilization_percent{"))
}
