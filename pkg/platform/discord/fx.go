package discord

import (
	"context"

	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
)

// Module provides the Discord client as the platform.
var Module = fx.Module("discord",
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) platform.Platform { return c }),
)

// NewClient creates the Discord client for fx and ties the gateway
// connection to the app lifecycle.
func NewClient(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (*Client, error) {
	c, err := New(log.Named("discord"), cfg.Discord)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return c.Stop(ctx)
		},
	})

	return c, nil
}
