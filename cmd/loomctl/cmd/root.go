// Package cmd holds loomctl's cobra command tree, generalizing
// _examples/theRebelliousNerd-codenerd/cmd/nerd's command-per-file
// layout down to the two subcommands loom's core actually needs:
// validate (no side effects) and serve (the real entry point).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/engine"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "loomctl",
	Short: "loomctl runs and inspects a loom application",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a loom YAML config file")
	rootCmd.AddCommand(serveCmd, validateCmd)
}

// Execute runs the command tree and returns the process exit code,
// translating any cobra/command error into engine.ExitStartupFailure
// rather than letting cobra print its own generic failure.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return engine.ExitStartupFailure
	}
	return exitCode
}

// exitCode is set by whichever subcommand ran, since cobra's RunE only
// reports success/failure, not loom's three-valued exit code.
var exitCode int
