package workqueue

import (
	"context"

	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/errreport"
	"botcore/pkg/logger"
)

// Module is the fx module for the async execution queue.
var Module = fx.Module("workqueue",
	fx.Provide(NewQueue),
)

// NewQueue creates the queue for fx from the dispatch section.
func NewQueue(
	lc fx.Lifecycle,
	log *logger.Logger,
	reporter errreport.Reporter,
	cfg *config.Config,
) *Queue {
	q := New(log.Named("workqueue"), reporter, cfg.Dispatch.Workers, cfg.Dispatch.IdleWait)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return q.Start()
		},
		OnStop: func(ctx context.Context) error {
			return q.Stop()
		},
	})

	return q
}
