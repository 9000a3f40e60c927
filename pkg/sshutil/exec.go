package sshutil

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/crypto/ssh"

	"gpuwatch/internal/errors"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	exitCode = 0
	err = session.Run(cmd)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			err = nil // command ran, just had non-zero exit
		} else {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}

// ExecContext runs a command with a context bound. When the context expires
// before the command completes, the session is torn down so the caller does
// not wait on the remote process, and a TIMEOUT-coded error is returned.
// The remote process may keep running; the transport resources on our side
// are released.
func (c *Client) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	type runResult struct {
		err error
	}
	done := make(chan runResult, 1)

	go func() {
		done <- runResult{err: session.Run(cmd)}
	}()

	select {
	case <-ctx.Done():
		// Abandon the in-flight command. Closing the session unblocks the
		// Run goroutine and frees the channel on the SSH connection.
		_ = session.Close()
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Command didn't finish in time: %s", cmd),
			"Raise command_timeout or check the host isn't overloaded.")
	case r := <-done:
		defer session.Close()
		if r.err != nil {
			if exitErr, ok := r.err.(*ssh.ExitError); ok {
				return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
			}
			return nil, nil, -1, errors.WrapWithCode(r.err, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
	}
}
