package sshutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestionForDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"refused", errors.New("dial tcp 10.0.1.35:22: connect: connection refused"), "Is SSH running"},
		{"no route", errors.New("dial tcp: connect: no route to host"), "Can't route"},
		{"timeout", errors.New("dial tcp 10.0.1.35:22: i/o timeout"), "timed out"},
		{"other", errors.New("something else"), "reachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, suggestionForDialError(tt.err), tt.want)
		})
	}
}

func TestSuggestionForHandshakeError(t *testing.T) {
	authErr := errors.New("ssh: unable to authenticate, attempted methods [publickey]")
	assert.Contains(t, suggestionForHandshakeError(authErr), "ssh-add -l")

	hostKeyErr := errors.New("ssh: host key mismatch")
	assert.Contains(t, suggestionForHandshakeError(hostKeyErr), "Host key")
}

func TestExpandPath(t *testing.T) {
	home := homeDir()
	assert.Equal(t, home+"/.ssh/id_ed25519", expandPath("~/.ssh/id_ed25519"))
	assert.Equal(t, "/etc/ssh/key", expandPath("/etc/ssh/key"))
}

func TestClientCloseNil(t *testing.T) {
	c := &Client{Alias: "c535"}
	assert.NoError(t, c.Close())
}
