// Package main is the entry point for the botcore CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"botcore/pkg/builtin"
	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/dispatch"
	"botcore/pkg/errreport"
	"botcore/pkg/heartbeat"
	"botcore/pkg/logger"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
	"botcore/pkg/version"
	"botcore/pkg/workqueue"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "botcore",
	Short: "botcore - A text command engine for chat bots",
	Long: `botcore parses prefixed chat messages into commands, checks their
preconditions, parses their arguments and runs them, either inline or on a
background worker queue.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		fmt.Fprintln(cmd.OutOrStdout(), version.Runtime())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

// coreModules are the modules shared by every way of running the engine.
// The platform is supplied by the caller.
func coreModules() fx.Option {
	return fx.Options(
		fx.Supply(config.Path(configPath)),
		config.Module,
		logger.Module,
		state.Module,
		errreport.Module,
		scheduler.Module,
		workqueue.Module,
		commands.Module,
		dispatch.Module,
		builtin.Module,
		heartbeat.Module,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
