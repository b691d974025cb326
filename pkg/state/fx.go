package state

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/logger"
)

// Module provides the KV backend selected by the state section and the
// domain Store on top of it.
var Module = fx.Module("state",
	fx.Provide(ProvideKV),
	fx.Provide(NewStore),
	fx.Provide(func(s *Store) commands.VarReader { return s }),
)

// OptionsFromConfig maps the state and redis config sections to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Backend: cfg.State.Backend,
		Path:    cfg.StatePath(),
		Redis: redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Namespace: cfg.State.Prefix,
	}
	if cfg.State.AutoSave && cfg.State.SaveInterval > 0 {
		opts.FlushInterval = time.Duration(cfg.State.SaveInterval) * time.Second
	}
	return opts
}

// ProvideKV opens the backend and closes it when the app stops.
func ProvideKV(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (KV, error) {
	log = log.Named("state")
	opts := OptionsFromConfig(cfg)

	kv, err := Open(context.Background(), log, opts)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing state store", zap.String("backend", opts.Backend))
			return kv.Close()
		},
	})
	return kv, nil
}
