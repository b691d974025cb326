package builtin

import (
	"go.uber.org/fx"

	"botcore/pkg/commands"
	"botcore/pkg/logger"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
)

// Module registers the built-in commands.
var Module = fx.Module("builtin",
	fx.Provide(NewSet),
	fx.Invoke(func(s *Set) error { return s.Register() }),
)

// NewSet creates the built-in command set for fx.
func NewSet(log *logger.Logger, registry *commands.Registry, store *state.Store, sched *scheduler.Scheduler) *Set {
	return New(log.Named("builtin"), registry, store, sched)
}
