package poll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gpuwatch/internal/errors"
	"gpuwatch/internal/logger"
)

// Runner executes one command on one host and returns its standard output.
// Failures come back as structured errors whose code tells the caller which
// failure class it was: SSH (unreachable), TIMEOUT, or EXEC. Runners do not
// retry; the next poll cycle is the retry.
type Runner interface {
	Run(ctx context.Context, alias, command string) (string, error)
}

// SSHRunner runs commands over pooled SSH connections.
type SSHRunner struct {
	pool    *Pool
	timeout time.Duration
	log     logger.Logger
}

// NewSSHRunner creates a runner on top of pool. timeout bounds each command
// invocation; the context passed to Run may shorten it further.
func NewSSHRunner(pool *Pool, timeout time.Duration, log logger.Logger) *SSHRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &SSHRunner{pool: pool, timeout: timeout, log: log}
}

// Run executes command on the host behind alias and returns its stdout.
//   - Dial/auth/session failures return an SSH-coded error.
//   - Hitting the timeout returns a TIMEOUT-coded error; the pooled
//     connection is dropped so the abandoned session's transport is released
//     and the caller is never held past the budget.
//   - Non-zero exit with stdout is returned as output for the caller to
//     judge; non-zero exit with empty stdout is an SSH-coded error carrying
//     stderr as the diagnostic.
func (r *SSHRunner) Run(ctx context.Context, alias, command string) (string, error) {
	client, err := r.pool.Get(alias)
	if err != nil {
		return "", err
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout, stderr, exitCode, err := client.ExecContext(cmdCtx, command)
	if err != nil {
		if errors.IsCode(err, errors.ErrTimeout) {
			// The session is already closed; drop the connection too so the
			// transport handle doesn't leak behind a hung remote process.
			r.pool.Drop(alias)
			r.log.Warn("command on %s timed out after %s", alias, r.timeout)
			return "", err
		}
		// Session-level failures usually mean the connection died mid-cycle.
		r.pool.Drop(alias)
		return "", err
	}

	out := string(stdout)
	if exitCode != 0 {
		if strings.TrimSpace(out) == "" {
			msg := fmt.Sprintf("command on %s exited %d with no output", alias, exitCode)
			if diag := firstLine(string(stderr)); diag != "" {
				msg = fmt.Sprintf("%s: %s", msg, diag)
			}
			return "", errors.New(errors.ErrSSH, msg, "")
		}
		// Output despite a non-zero exit: let the parser decide.
		r.log.Debug("command on %s exited %d but produced output", alias, exitCode)
	}

	return out, nil
}

// firstLine trims stderr down to its first non-empty line for diagnostics.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
