package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a loom config file without starting anything",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			exitCode = 1
			return err
		}
		fmt.Printf("config OK: startup_failure_mode=%s shutdown_component_deadline=%s\n",
			cfg.StartupFailureMode, cfg.ShutdownComponentDeadline)
		exitCode = 0
		return nil
	},
}
