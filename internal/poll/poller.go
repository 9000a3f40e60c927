package poll

import (
	"context"
	"time"

	stderrs "errors"

	"gpuwatch/internal/errors"
)

// HostPoller runs the remote queries and the parsers for a single host: the
// device query first, then best-effort compute-process and username lookups.
// It is the unit of per-host failure isolation: Poll always returns exactly
// one Result and never an error, so nothing from one host can disturb its
// siblings or the scheduler.
type HostPoller struct {
	runner  Runner
	command string
	now     func() time.Time // injectable for tests
}

// NewHostPoller creates a poller that issues command through runner.
// An empty command defaults to SMIQueryCommand.
func NewHostPoller(runner Runner, command string) *HostPoller {
	if command == "" {
		command = SMIQueryCommand
	}
	return &HostPoller{
		runner:  runner,
		command: command,
		now:     time.Now,
	}
}

// Poll attempts one poll of alias and reports the outcome as a value.
func (p *HostPoller) Poll(ctx context.Context, alias string) Result {
	result := Result{
		Host:      alias,
		Timestamp: p.now(),
	}

	output, err := p.runner.Run(ctx, alias, p.command)
	if err != nil {
		result.Status = statusForError(err)
		result.Detail = errorDetail(err)
		return result
	}

	readings, err := ParseSMI(output)
	if err != nil {
		result.Status = StatusParseError
		result.Detail = errorDetail(err)
		return result
	}

	result.Status = StatusOk
	result.Readings = readings
	if len(readings) > 0 {
		result.Processes = p.pollProcesses(ctx, alias, readings)
	}
	return result
}

// pollProcesses fetches the compute-process list for a host whose device
// query already succeeded, then resolves the owning usernames with a ps
// round trip. Every failure degrades to less detail instead of failing the
// host: no process query means no process list, no ps means owners show as
// "unknown". The device stats stay authoritative either way.
func (p *HostPoller) pollProcesses(ctx context.Context, alias string, readings []Reading) []Process {
	output, err := p.runner.Run(ctx, alias, ComputeAppsQueryCommand)
	if err != nil {
		return nil
	}

	busToIndex := make(map[string]int, len(readings))
	for _, reading := range readings {
		busToIndex[reading.BusID] = reading.Index
	}

	processes := ParseComputeApps(output, busToIndex)
	if len(processes) == 0 {
		return processes
	}

	users := map[int]string{}
	if psOut, err := p.runner.Run(ctx, alias, PSUsersCommand(processes)); err == nil {
		users = ParsePSUsers(psOut)
	}
	ResolveUsers(processes, users)

	return processes
}

// statusForError maps runner error codes to poll statuses. Anything
// unclassified counts as unreachable: the host didn't produce usable output
// this cycle.
func statusForError(err error) Status {
	switch errors.Code(err) {
	case errors.ErrTimeout:
		return StatusTimeout
	case errors.ErrParse:
		return StatusParseError
	default:
		return StatusUnreachable
	}
}

// errorDetail extracts a single-line diagnostic from an error.
func errorDetail(err error) string {
	var gwErr *errors.Error
	if stderrs.As(err, &gwErr) {
		return gwErr.Detail()
	}
	return err.Error()
}
