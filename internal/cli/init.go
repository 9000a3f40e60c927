package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gpuwatch/internal/config"
	"gpuwatch/internal/errors"
	"gpuwatch/pkg/sshutil"
)

// starterConfig mirrors config.Config but keeps durations as strings so the
// generated YAML reads "5s" instead of nanosecond integers.
type starterConfig struct {
	Hosts          []string `yaml:"hosts"`
	PollInterval   string   `yaml:"poll_interval"`
	CommandTimeout string   `yaml:"command_timeout"`
	SSHConfig      string   `yaml:"ssh_config"`
	Bind           string   `yaml:"bind"`
}

const initHeader = `# gpuwatch configuration
#
# hosts is a list of SSH aliases from your ssh_config; every entry is
# polled once per poll_interval. Trim it to the machines that have GPUs.
`

// initCommand writes a starter gpuwatch.yaml to the current directory.
func initCommand(force bool) error {
	path := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite")
	}

	defaults := config.Default()
	starter := starterConfig{
		Hosts:          starterHosts(defaults.SSHConfigPath()),
		PollInterval:   defaults.PollInterval.String(),
		CommandTimeout: defaults.CommandTimeout.String(),
		SSHConfig:      defaults.SSHConfig,
		Bind:           defaults.Bind,
	}

	body, err := yaml.Marshal(&starter)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to render config",
			"This is a bug; please report it")
	}

	content := append([]byte(initHeader), body...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check directory permissions")
	}

	fmt.Printf("Created %s with %d host(s). Edit the hosts list, then run 'gpuwatch serve'.\n",
		path, len(starter.Hosts))
	return nil
}

// starterHosts seeds the hosts list from the user's SSH config aliases. A
// placeholder keeps the generated file valid when no aliases exist.
func starterHosts(sshConfigPath string) []string {
	aliases, err := sshutil.Aliases(sshConfigPath)
	if err == nil && len(aliases) > 0 {
		return aliases
	}
	return []string{"gpu-host-1"}
}
