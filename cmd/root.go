package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dischargectl/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "dischargectl",
	Short: "Battery discharge EGSE for the KEL103 electronic load",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configured file. When the default path does not exist
// the built-in defaults are used; an explicitly given path must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(cfgPath); err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("config") && !rootCmd.PersistentFlags().Changed("config") {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return config.Load(cfgPath)
}
