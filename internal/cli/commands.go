package cli

import (
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	statusJSONFlag bool
	initForce      bool
)

// serveCmd starts the poller and the web dashboard
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll hosts continuously and serve the dashboard",
	Long: `Start the background poller and the web server.

Every poll interval, each configured host is polled concurrently over
SSH; results land in an in-memory cache that backs the dashboard at /,
the JSON API at /api/hosts and /api/summary, and Prometheus metrics
at /metrics.

Examples:
  gpuwatch serve
  gpuwatch serve --config ./gpuwatch.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand()
	},
}

// statusCmd polls every host once and prints the result
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Poll all hosts once and print a table",
	Long: `Run a single poll cycle against every configured host and print
the readings, without starting the web server.

Examples:
  gpuwatch status
  gpuwatch status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand(statusJSONFlag)
	},
}

// initCmd creates a starter gpuwatch.yaml
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a gpuwatch.yaml configuration",
	Long: `Write a starter gpuwatch.yaml to the current directory.

Hosts are pre-filled from the aliases in your ~/.ssh/config when
possible; edit the list down to the machines that actually have GPUs.

Examples:
  gpuwatch init
  gpuwatch init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

// configCmd prints the resolved configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the configuration gpuwatch would run with, after applying
defaults, the config file, and GPUWATCH_* environment overrides.
Each host is checked against the SSH config so unresolvable aliases
show up before you start the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configCommand()
	},
}

func init() {
	// status command flags
	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "print results as JSON")

	// init command flags
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")

	// Register all commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}
