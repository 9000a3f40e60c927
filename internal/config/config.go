package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gpuwatch/internal/errors"
)

const (
	// ConfigFileName is the default config file name looked up in the cwd.
	ConfigFileName = "gpuwatch.yaml"
	// GlobalConfigDir is the directory for global config, under $HOME.
	GlobalConfigDir = ".config/gpuwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Config holds everything gpuwatch needs at startup.
type Config struct {
	// Hosts is the ordered set of SSH aliases to poll. Required, unique.
	Hosts []string `yaml:"hosts" mapstructure:"hosts"`

	// PollInterval is the time between poll cycles. Required > 0.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// CommandTimeout bounds a single remote nvidia-smi invocation.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// SSHConfig is the SSH config file used to resolve host aliases.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	// Bind is the listen address for the web dashboard and API.
	Bind string `yaml:"bind" mapstructure:"bind"`
}

// Default returns a Config with the stock defaults.
func Default() *Config {
	return &Config{
		PollInterval:   5 * time.Second,
		CommandTimeout: 8 * time.Second,
		SSHConfig:      "~/.ssh/config",
		Bind:           "127.0.0.1:8000",
	}
}

// Load reads config from the specified path, or from the search path when
// path is empty, and validates it. The zero-hosts and bad-interval cases are
// CONFIG-coded errors; callers treat those as fatal.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GPUWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = Find()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found: "+path,
					"Run 'gpuwatch init' to create one, or point --config at it")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML: "+path)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find locates the config file: gpuwatch.yaml in the current directory, then
// ~/.config/gpuwatch/config.yaml. Returns "" when neither exists.
func Find() string {
	cwd, err := os.Getwd()
	if err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global
		}
	}

	return ""
}

// Validate checks startup invariants. Any failure here prevents the
// scheduler from ever starting.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"No hosts configured",
			"Add at least one SSH host alias under 'hosts:' in "+ConfigFileName)
	}

	seen := make(map[string]bool, len(c.Hosts))
	for _, alias := range c.Hosts {
		if strings.TrimSpace(alias) == "" {
			return errors.New(errors.ErrConfig,
				"Empty host alias in hosts list",
				"Remove the blank entry from 'hosts:'")
		}
		if seen[alias] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Duplicate host alias '%s'", alias),
				"Each host may appear only once in 'hosts:'")
		}
		seen[alias] = true
	}

	if c.PollInterval <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid poll_interval: %s", c.PollInterval),
			"poll_interval must be a positive duration like 5s")
	}

	if c.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid command_timeout: %s", c.CommandTimeout),
			"command_timeout must be a positive duration like 8s")
	}

	if c.Bind == "" {
		return errors.New(errors.ErrConfig,
			"Empty bind address",
			"Set 'bind:' to a listen address like 127.0.0.1:8000")
	}

	return nil
}

// SSHConfigPath returns the ssh_config value with ~ expanded.
func (c *Config) SSHConfigPath() string {
	path := c.SSHConfig
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("command_timeout", "8s")
	v.SetDefault("ssh_config", "~/.ssh/config")
	v.SetDefault("bind", "127.0.0.1:8000")
}
