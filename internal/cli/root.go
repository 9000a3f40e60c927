// Package cli wires the gpuwatch commands together. Each command loads
// config, builds the polling stack it needs, and tears it down on exit.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configFlag is the --config override shared by all commands.
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "gpuwatch",
	Short: "GPU usage dashboard for SSH-reachable hosts",
	Long: `gpuwatch polls nvidia-smi over SSH on a set of configured hosts and
serves the latest readings as a web dashboard, a JSON API, and
Prometheus metrics.

Hosts are SSH aliases resolved through your ~/.ssh/config, so anything
you can 'ssh <alias>' into, gpuwatch can watch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
}
