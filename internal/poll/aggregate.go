package poll

import "time"

// Summarize derives the cluster-wide view from one snapshot. It is a pure
// function of its inputs: hosts is the configured alias list, now the query
// time, interval the poll interval used for the staleness cutoff.
//
// A host counts as stale when its last result is older than twice the poll
// interval; a host that has never been polled has no entry in the snapshot
// and is counted separately rather than flagged stale.
func Summarize(snap Snapshot, hosts []string, now time.Time, interval time.Duration) Summary {
	summary := Summary{
		Hosts:     len(hosts),
		Stale:     make(map[string]bool, len(hosts)),
		CycleTime: snap.CycleTime,
	}

	staleCutoff := 2 * interval

	for _, alias := range hosts {
		result, polled := snap.Results[alias]
		if !polled {
			summary.NeverPolled++
			continue
		}

		summary.Stale[alias] = now.Sub(result.Timestamp) > staleCutoff

		switch result.Status {
		case StatusOk:
			summary.Ok++
			summary.Accelerators += len(result.Readings)
			for _, reading := range result.Readings {
				summary.MemoryUsedBytes += reading.MemoryUsedBytes
				summary.MemoryTotalBytes += reading.MemoryTotalBytes
			}
		case StatusUnreachable:
			summary.Unreachable++
		case StatusTimeout:
			summary.Timeout++
		case StatusParseError:
			summary.ParseError++
		}
	}

	return summary
}
