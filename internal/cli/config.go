package cli

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"gpuwatch/internal/config"
	"gpuwatch/pkg/sshutil"
)

// configCommand prints the resolved configuration and flags host aliases
// that don't resolve through the SSH config.
func configCommand() error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	source := configFlag
	if source == "" {
		source = config.Find()
	}
	if source == "" {
		source = mutedStyle.Render("(defaults + environment)")
	}

	fmt.Printf("config:          %s\n", source)
	fmt.Printf("poll_interval:   %s\n", cfg.PollInterval)
	fmt.Printf("command_timeout: %s\n", cfg.CommandTimeout)
	fmt.Printf("ssh_config:      %s\n", cfg.SSHConfig)
	fmt.Printf("bind:            %s\n", cfg.Bind)
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Host", "SSH Config")

	sshConfigPath := cfg.SSHConfigPath()
	for _, alias := range cfg.Hosts {
		resolved := okStyle.Render("found")
		if !sshutil.HasAlias(sshConfigPath, alias) {
			resolved = warnStyle.Render("no alias, will try as hostname")
		}
		table.Append(alias, resolved)
	}

	table.Render()
	return nil
}
