package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/dispatch"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/platform/discord"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and handle commands",
	Long: `Connect to Discord with the configured bot token and handle commands
until interrupted. When installed as a service, this is what the service
manager runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !service.Interactive() {
			return RunService()
		}

		app := newApp()
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

// newApp builds the Discord-backed application.
func newApp(opts ...fx.Option) *fx.App {
	return fx.New(
		coreModules(),
		discord.Module,
		fx.Invoke(requireDiscord),
		fx.Invoke(connectDispatcher),
		fx.Invoke(logStartup),
		fx.Options(opts...),
	)
}

func requireDiscord(cfg *config.Config) error {
	if !cfg.Discord.Enabled {
		return fmt.Errorf("discord is disabled: enable it in the config or use the console command")
	}
	return nil
}

// connectDispatcher routes inbound Discord messages to the dispatcher. The
// client is created before the dispatcher, so the handler is set afterwards.
func connectDispatcher(client *discord.Client, d *dispatch.Dispatcher, log *logger.Logger) {
	client.SetHandler(func(ctx context.Context, msg platform.Message) {
		if err := d.HandleMessage(ctx, msg); err != nil {
			log.Debug("Command failed",
				zap.String("channel_id", msg.ChannelID),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	})
}

func logStartup(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config, registry *commands.Registry) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("botcore started",
				zap.String("prefix", cfg.Prefix()),
				zap.Int("commands", len(registry.Commands())),
			)
			return nil
		},
	})
}
