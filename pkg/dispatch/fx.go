package dispatch

import (
	"context"

	"go.uber.org/fx"

	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/errreport"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/state"
	"botcore/pkg/workqueue"
)

// Module is the fx module for the dispatcher.
var Module = fx.Module("dispatch",
	fx.Provide(NewDispatcher),
)

// Params are the dependencies of NewDispatcher.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *logger.Logger
	Config    *config.Config
	Registry  *commands.Registry
	Parser    *commands.Parser
	Platform  platform.Platform
	Store     *state.Store
	Queue     *workqueue.Queue
	Reporter  errreport.Reporter
}

// NewDispatcher creates the dispatcher for fx. The registry is sealed on
// start, after every command module has registered.
func NewDispatcher(p Params) *Dispatcher {
	d := New(
		p.Logger.Named("dispatch"),
		p.Config,
		p.Registry,
		p.Parser,
		p.Platform,
		p.Store,
		p.Queue,
		p.Reporter,
	)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			d.Start()
			return nil
		},
	})

	return d
}
