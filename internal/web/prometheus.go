package web

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gpuwatch/internal/poll"
)

// ClusterCollector exposes the poll cache as Prometheus metrics. Each scrape
// reads exactly one snapshot, so all series in a scrape come from the same
// internally-consistent copy.
type ClusterCollector struct {
	cache    *poll.Cache
	hosts    []string
	interval time.Duration

	utilization *prometheus.Desc
	memUsed     *prometheus.Desc
	memTotal    *prometheus.Desc
	temperature *prometheus.Desc
	hostUp      *prometheus.Desc
	hostStale   *prometheus.Desc
	cycleTime   *prometheus.Desc
}

// NewClusterCollector creates a collector over cache for the configured hosts.
func NewClusterCollector(cache *poll.Cache, hosts []string, interval time.Duration) *ClusterCollector {
	return &ClusterCollector{
		cache:    cache,
		hosts:    hosts,
		interval: interval,
		utilization: prometheus.NewDesc(
			"gpuwatch_gpu_utilization_percent",
			"GPU utilization percentage as reported by nvidia-smi.",
			[]string{"host", "gpu", "name"}, nil),
		memUsed: prometheus.NewDesc(
			"gpuwatch_gpu_memory_used_bytes",
			"GPU memory in use.",
			[]string{"host", "gpu", "name"}, nil),
		memTotal: prometheus.NewDesc(
			"gpuwatch_gpu_memory_total_bytes",
			"Total GPU memory.",
			[]string{"host", "gpu", "name"}, nil),
		temperature: prometheus.NewDesc(
			"gpuwatch_gpu_temperature_celsius",
			"GPU temperature. Absent for devices that don't report one.",
			[]string{"host", "gpu", "name"}, nil),
		hostUp: prometheus.NewDesc(
			"gpuwatch_host_up",
			"1 when the host's most recent poll succeeded, 0 otherwise.",
			[]string{"host", "status"}, nil),
		hostStale: prometheus.NewDesc(
			"gpuwatch_host_stale",
			"1 when the host's last result is older than twice the poll interval.",
			[]string{"host"}, nil),
		cycleTime: prometheus.NewDesc(
			"gpuwatch_last_cycle_timestamp_seconds",
			"Unix time of the most recent completed poll cycle.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ClusterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.utilization
	ch <- c.memUsed
	ch <- c.memTotal
	ch <- c.temperature
	ch <- c.hostUp
	ch <- c.hostStale
	ch <- c.cycleTime
}

// Collect implements prometheus.Collector.
func (c *ClusterCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.cache.Snapshot()
	now := time.Now()
	staleCutoff := 2 * c.interval

	if !snap.CycleTime.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.cycleTime, prometheus.GaugeValue,
			float64(snap.CycleTime.Unix()))
	}

	for _, alias := range c.hosts {
		result, polled := snap.Results[alias]
		if !polled {
			continue
		}

		up := 0.0
		if result.Ok() {
			up = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.hostUp, prometheus.GaugeValue, up,
			alias, result.Status.String())

		stale := 0.0
		if now.Sub(result.Timestamp) > staleCutoff {
			stale = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.hostStale, prometheus.GaugeValue, stale, alias)

		for _, reading := range result.Readings {
			gpu := strconv.Itoa(reading.Index)
			ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue,
				reading.UtilizationPct, alias, gpu, reading.Name)
			ch <- prometheus.MustNewConstMetric(c.memUsed, prometheus.GaugeValue,
				float64(reading.MemoryUsedBytes), alias, gpu, reading.Name)
			ch <- prometheus.MustNewConstMetric(c.memTotal, prometheus.GaugeValue,
				float64(reading.MemoryTotalBytes), alias, gpu, reading.Name)
			if reading.TemperatureC != nil {
				ch <- prometheus.MustNewConstMetric(c.temperature, prometheus.GaugeValue,
					float64(*reading.TemperatureC), alias, gpu, reading.Name)
			}
		}
	}
}
