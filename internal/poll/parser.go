package poll

import (
	"fmt"
	"strconv"
	"strings"

	"gpuwatch/internal/errors"
)

// SMIQueryCommand is the remote device query run against each host. One CSV
// line per device, no header, no unit columns. The bus id keys the
// compute-apps output back to a device index.
const SMIQueryCommand = "nvidia-smi --query-gpu=index,name,pci.bus_id,utilization.gpu,memory.used,memory.total,temperature.gpu --format=csv,noheader,nounits"

// ComputeAppsQueryCommand lists the compute processes holding memory on any
// device, keyed by the device's bus id.
const ComputeAppsQueryCommand = "nvidia-smi --query-compute-apps=gpu_bus_id,pid,process_name,used_memory --format=csv,noheader,nounits"

// smiFieldCount is the minimum field count per device line. Device names
// containing commas push the count higher; the bus id and the numeric fields
// stay anchored at the ends.
const smiFieldCount = 7

const mib = 1024 * 1024

// ParseSMI converts raw nvidia-smi CSV output into readings, in line order.
// Empty output parses to an empty slice: a host with zero visible devices is
// a valid Ok result, not a failure. Any malformed or semantically
// inconsistent line fails the whole parse, so one ambiguous device never
// silently disappears from an otherwise Ok result.
func ParseSMI(raw string) ([]Reading, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Reading{}, nil
	}

	var readings []Reading
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		reading, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	if readings == nil {
		readings = []Reading{}
	}
	return readings, nil
}

// parseLine parses one CSV device line:
// index, name, pci.bus_id, utilization.gpu, memory.used, memory.total, temperature.gpu
// The name may itself contain commas, so the index is taken from the front
// while the bus id and the four numeric fields are taken from the back.
func parseLine(line string) (Reading, error) {
	parts := strings.Split(line, ",")
	if len(parts) < smiFieldCount {
		return Reading{}, errors.New(errors.ErrParse,
			fmt.Sprintf("nvidia-smi line has %d fields, expected at least %d: %q", len(parts), smiFieldCount, line),
			"")
	}

	n := len(parts)

	index, err := parseInt("index", parts[0])
	if err != nil {
		return Reading{}, err
	}

	util, err := parseFloat("utilization.gpu", parts[n-4])
	if err != nil {
		return Reading{}, err
	}
	if util < 0 || util > 100 {
		return Reading{}, errors.New(errors.ErrParse,
			fmt.Sprintf("utilization.gpu %.1f out of range [0,100] in line %q", util, line),
			"")
	}

	memUsedMiB, err := parseInt("memory.used", parts[n-3])
	if err != nil {
		return Reading{}, err
	}

	memTotalMiB, err := parseInt("memory.total", parts[n-2])
	if err != nil {
		return Reading{}, err
	}

	if memUsedMiB < 0 || memTotalMiB < 0 {
		return Reading{}, errors.New(errors.ErrParse,
			fmt.Sprintf("negative memory value in line %q", line),
			"")
	}
	if memUsedMiB > memTotalMiB {
		return Reading{}, errors.New(errors.ErrParse,
			fmt.Sprintf("memory.used %d exceeds memory.total %d in line %q", memUsedMiB, memTotalMiB, line),
			"")
	}

	reading := Reading{
		Index:            int(index),
		Name:             strings.TrimSpace(strings.Join(parts[1:n-5], ",")),
		BusID:            strings.TrimSpace(parts[n-5]),
		UtilizationPct:   util,
		MemoryUsedBytes:  memUsedMiB * mib,
		MemoryTotalBytes: memTotalMiB * mib,
	}

	// Temperature is optional: some devices report [N/A].
	tempField := strings.TrimSpace(parts[n-1])
	if tempField != "" && tempField != "[N/A]" {
		temp, err := parseInt("temperature.gpu", tempField)
		if err != nil {
			return Reading{}, err
		}
		t := int(temp)
		reading.TemperatureC = &t
	}

	return reading, nil
}

// ParseComputeApps converts compute-apps CSV output into processes, mapping
// each line's bus id to a device index via busToIndex. Lines that don't
// parse or reference an unknown bus id are skipped rather than failing the
// host: the process list is a diagnostic layered on top of already-validated
// device stats, and processes come and go between the two queries anyway.
// User is left empty here; ResolveUsers fills it in.
func ParseComputeApps(raw string, busToIndex map[string]int) []Process {
	var processes []Process

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		// gpu_bus_id, pid, process_name, used_memory
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) < 4 {
			continue
		}

		index, known := busToIndex[strings.TrimSpace(parts[0])]
		if !known {
			continue
		}

		pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}

		var memMiB int64
		memField := strings.TrimSpace(parts[len(parts)-1])
		if memField != "" && memField != "[Not Supported]" && memField != "[N/A]" {
			memMiB, err = strconv.ParseInt(numericField(memField), 10, 64)
			if err != nil {
				continue
			}
		}

		processes = append(processes, Process{
			GPUIndex:        index,
			PID:             pid,
			Command:         strings.TrimSpace(strings.Join(parts[2:len(parts)-1], ",")),
			MemoryUsedBytes: memMiB * mib,
		})
	}

	return processes
}

// PSUsersCommand builds the remote ps invocation that resolves the given
// PIDs to usernames in one round trip. The trailing true keeps the exit
// status clean when some PIDs have already exited.
func PSUsersCommand(processes []Process) string {
	pids := make([]string, len(processes))
	for i, p := range processes {
		pids[i] = strconv.Itoa(p.PID)
	}
	return fmt.Sprintf("ps -o pid,user --no-headers -p %s 2>/dev/null || true", strings.Join(pids, ","))
}

// ParsePSUsers parses `ps -o pid,user --no-headers` output into a PID to
// username mapping. Malformed lines are skipped.
func ParsePSUsers(raw string) map[int]string {
	users := make(map[int]string)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		users[pid] = fields[1]
	}
	return users
}

// ResolveUsers fills each process's User from the PID mapping. PIDs missing
// from the mapping resolve to "unknown" so the dashboard never shows a blank
// owner.
func ResolveUsers(processes []Process, users map[int]string) {
	for i := range processes {
		if user, ok := users[processes[i].PID]; ok {
			processes[i].User = user
		} else {
			processes[i].User = "unknown"
		}
	}
}

// numericField strips surrounding whitespace and trailing unit suffixes that
// nvidia-smi emits when run without nounits (%, MiB, W, C).
func numericField(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "MiB")
	s = strings.TrimSuffix(s, "W")
	s = strings.TrimSuffix(s, "C")
	return strings.TrimSpace(s)
}

func parseInt(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(numericField(raw), 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrParse,
			fmt.Sprintf("bad %s value %q", field, strings.TrimSpace(raw)),
			"")
	}
	return v, nil
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(numericField(raw), 64)
	if err != nil {
		return 0, errors.New(errors.ErrParse,
			fmt.Sprintf("bad %s value %q", field, strings.TrimSpace(raw)),
			"")
	}
	return v, nil
}
