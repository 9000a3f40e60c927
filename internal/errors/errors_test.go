package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrConfig, "No hosts configured", "Add at least one host alias to gpuwatch.yaml")

	assert.Equal(t, ErrConfig, err.Code)
	assert.Contains(t, err.Error(), "No hosts configured")
	assert.Contains(t, err.Error(), "gpuwatch.yaml")
	assert.Nil(t, err.Cause)
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("underlying network error")
	wrapped := Wrap(cause, "SSH connection failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrSSH, wrapped.Code, "Wrap should default to ErrSSH code")
	assert.Equal(t, "SSH connection failed", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
	assert.Equal(t, cause, stderrors.Unwrap(wrapped))
}

func TestWrapWithCode(t *testing.T) {
	cause := stderrors.New("dial tcp: i/o timeout")
	err := WrapWithCode(cause, ErrSSH, "Can't reach 'c535'", "Check the host is up")

	assert.Equal(t, ErrSSH, err.Code)
	assert.Contains(t, err.Error(), "Can't reach 'c535'")
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"matching code", New(ErrTimeout, "timed out", ""), ErrTimeout, true},
		{"different code", New(ErrParse, "bad field", ""), ErrTimeout, false},
		{"plain error", stderrors.New("boom"), ErrSSH, false},
		{"nil error", nil, ErrSSH, false},
		{"wrapped structured error", fmt.Errorf("outer: %w", New(ErrSSH, "inner", "")), ErrSSH, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, ErrParse, Code(New(ErrParse, "bad line", "")))
	assert.Equal(t, "", Code(stderrors.New("plain")))
	assert.Equal(t, "", Code(nil))
}

func TestDetail(t *testing.T) {
	plain := New(ErrTimeout, "Command timed out after 8s", "Raise command_timeout")
	assert.Equal(t, "Command timed out after 8s", plain.Detail())

	wrapped := WrapWithCode(stderrors.New("connection refused"), ErrSSH, "Can't reach 'c104'", "")
	require.Contains(t, wrapped.Detail(), "Can't reach 'c104'")
	assert.Contains(t, wrapped.Detail(), "connection refused")
	// Detail stays single-line for embedding in result diagnostics
	assert.NotContains(t, wrapped.Detail(), "\n")
}
