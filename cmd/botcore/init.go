package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"botcore/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write the default configuration to the --config path, BOTCORE_CONFIG_FILE
or ~/.botcore/config.json. An existing file is left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		write := config.InitDefaultConfig
		if configPath != "" {
			write = func() (string, bool, error) { return config.InitConfigAt(configPath) }
		}
		resolved, created, err := write()
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", resolved)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", resolved)
		}
		return nil
	},
}
