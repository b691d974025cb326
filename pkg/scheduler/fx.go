package scheduler

import (
	"context"

	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/errreport"
	"botcore/pkg/logger"
)

// Module is the fx module for the scheduled action timer.
var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
)

// NewScheduler creates the scheduler for fx and ties its loop to the app
// lifecycle.
func NewScheduler(
	lc fx.Lifecycle,
	log *logger.Logger,
	reporter errreport.Reporter,
	cfg *config.Config,
) *Scheduler {
	s := New(log.Named("scheduler"), reporter, cfg.Scheduler.Cadence)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop()
		},
	})

	return s
}
