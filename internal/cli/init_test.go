package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gpuwatch/internal/config"
	"gpuwatch/internal/errors"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestInitCommandCreatesConfig(t *testing.T) {
	dir := inTempDir(t)

	require.NoError(t, initCommand(false))

	raw, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)

	var starter starterConfig
	require.NoError(t, yaml.Unmarshal(raw, &starter))

	assert.NotEmpty(t, starter.Hosts)
	assert.Equal(t, "5s", starter.PollInterval)
	assert.Equal(t, "8s", starter.CommandTimeout)
	assert.Equal(t, "127.0.0.1:8000", starter.Bind)
}

func TestInitCommandRefusesOverwrite(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("hosts: [mine]\n"), 0o644))

	err := initCommand(false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "already exists")

	// Existing content untouched.
	raw, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "hosts: [mine]\n", string(raw))
}

func TestInitCommandForceOverwrites(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("hosts: [mine]\n"), 0o644))

	require.NoError(t, initCommand(true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "poll_interval: 5s")
}

func TestStarterHostsFallsBackToPlaceholder(t *testing.T) {
	hosts := starterHosts(filepath.Join(t.TempDir(), "no-such-config"))
	assert.Equal(t, []string{"gpu-host-1"}, hosts)
}

func TestStarterHostsReadsSSHConfig(t *testing.T) {
	sshConfig := filepath.Join(t.TempDir(), "config")
	content := `Host gpu-a
    HostName 10.0.0.1

Host gpu-b
    HostName 10.0.0.2

Host *
    User admin
`
	require.NoError(t, os.WriteFile(sshConfig, []byte(content), 0o644))

	hosts := starterHosts(sshConfig)
	assert.Equal(t, []string{"gpu-a", "gpu-b"}, hosts)
}
