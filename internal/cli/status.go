package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"gpuwatch/internal/config"
	"gpuwatch/internal/errors"
	"gpuwatch/internal/logger"
	"gpuwatch/internal/poll"
	"gpuwatch/pkg/sshutil"
)

// Semantic colors for status indication, ANSI codes for terminal
// compatibility.
const (
	colorSuccess lipgloss.Color = "2" // Green
	colorError   lipgloss.Color = "1" // Red
	colorWarning lipgloss.Color = "3" // Yellow
	colorMuted   lipgloss.Color = "8" // Gray
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	errStyle   = lipgloss.NewStyle().Foreground(colorError)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// statusCommand polls every configured host once and prints the outcome.
func statusCommand(asJSON bool) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("gpuwatch")
	pool := poll.NewPool(cfg.CommandTimeout, cfg.SSHConfigPath())
	defer pool.Close()
	defer sshutil.CloseAgent()

	runner := poll.NewSSHRunner(pool, cfg.CommandTimeout, log)
	poller := poll.NewHostPoller(runner, "")
	cache := poll.NewCache()
	scheduler := poll.NewScheduler(cfg.Hosts, cfg.PollInterval, poller, cache, log)

	scheduler.RunCycle(context.Background())
	snap := cache.Snapshot()

	results := make([]poll.Result, 0, len(cfg.Hosts))
	for _, alias := range cfg.Hosts {
		results = append(results, snap.Results[alias])
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	printStatusTable(results)

	anyOk := false
	for _, result := range results {
		if result.Ok() {
			anyOk = true
			break
		}
	}
	if !anyOk {
		return errors.New(errors.ErrSSH,
			"No hosts could be polled",
			"Check SSH connectivity with 'ssh <alias> nvidia-smi' for a configured alias")
	}
	return nil
}

func printStatusTable(results []poll.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Host", "Status", "GPU", "Name", "Util", "Memory", "Temp", "Users")

	for _, result := range results {
		if !result.Ok() {
			table.Append(result.Host, styleStatus(result.Status), "-", "-", "-", "-", "-", "-")
			continue
		}
		if len(result.Readings) == 0 {
			table.Append(result.Host, styleStatus(result.Status),
				"-", mutedStyle.Render("no accelerators"), "-", "-", "-", "-")
			continue
		}
		for i, reading := range result.Readings {
			host := result.Host
			status := styleStatus(result.Status)
			if i > 0 {
				host = ""
				status = ""
			}
			table.Append(host, status,
				fmt.Sprintf("%d", reading.Index),
				reading.Name,
				styleUtilization(reading.UtilizationPct),
				fmt.Sprintf("%s / %s", formatBytes(reading.MemoryUsedBytes), formatBytes(reading.MemoryTotalBytes)),
				formatTemperature(reading.TemperatureC),
				formatUsers(result.Processes, reading.Index))
		}
	}

	table.Render()
}

// formatUsers summarizes the compute processes on one device as
// "user (command, mem)" entries.
func formatUsers(processes []poll.Process, gpuIndex int) string {
	var parts []string
	for _, p := range processes {
		if p.GPUIndex != gpuIndex {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s, %s)", p.User, p.Command, formatBytes(p.MemoryUsedBytes)))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func styleStatus(status poll.Status) string {
	switch status {
	case poll.StatusOk:
		return okStyle.Render("ok")
	case poll.StatusTimeout:
		return warnStyle.Render("timeout")
	default:
		return errStyle.Render(status.String())
	}
}

func styleUtilization(pct float64) string {
	s := fmt.Sprintf("%.0f%%", pct)
	switch {
	case pct >= 90:
		return errStyle.Render(s)
	case pct >= 60:
		return warnStyle.Render(s)
	default:
		return s
	}
}

func formatBytes(n int64) string {
	const (
		mib = 1024 * 1024
		gib = 1024 * mib
	)
	if n >= gib {
		return fmt.Sprintf("%.1f GiB", float64(n)/float64(gib))
	}
	return fmt.Sprintf("%d MiB", n/mib)
}

func formatTemperature(c *int) string {
	if c == nil {
		return mutedStyle.Render("n/a")
	}
	return fmt.Sprintf("%d°C", *c)
}
