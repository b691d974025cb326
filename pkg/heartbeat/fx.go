package heartbeat

import (
	"context"

	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
)

// Module is the fx module for heartbeat.
var Module = fx.Module("heartbeat",
	fx.Provide(NewService),
	fx.Invoke(StartHeartbeat),
)

// NewService creates the heartbeat service from the heartbeat section.
func NewService(
	log *logger.Logger,
	sched *scheduler.Scheduler,
	p platform.Platform,
	store *state.Store,
	cfg *config.Config,
) *Service {
	return New(log.Named("heartbeat"), sched, p, store, Config{
		Enabled:    cfg.Heartbeat.Enabled,
		Schedule:   cfg.Heartbeat.Schedule,
		StartDelay: cfg.Heartbeat.StartDelay,
	})
}

// StartHeartbeat registers the heartbeat service lifecycle hooks.
func StartHeartbeat(
	lc fx.Lifecycle,
	service *Service,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return service.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return service.Stop(ctx)
		},
	})
}
