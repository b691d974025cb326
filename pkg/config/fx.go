package config

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"botcore/pkg/logger"
)

// Path is an explicit config file location supplied by the CLI.
type Path string

// Module provides configuration for fx dependency injection.
var Module = fx.Module("config",
	fx.Provide(ProvideLoader),
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLoggerConfig),
	fx.Provide(ProvideWatcher),
)

// ProvideLoader provides a configuration loader.
func ProvideLoader() *Loader {
	return NewLoader()
}

// ConfigParams are the inputs of ProvideConfig.
type ConfigParams struct {
	fx.In

	Loader *Loader
	Path   Path `optional:"true"`
}

// ProvideConfig provides loaded and validated configuration.
func ProvideConfig(p ConfigParams) (*Config, error) {
	cfg, err := p.Loader.Load(string(p.Path))
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ProvideLoggerConfig exposes the logger section to the logger module.
func ProvideLoggerConfig(cfg *Config) *logger.Config {
	return cfg.Logger.ToLoggerConfig()
}

// ProvideWatcher provides a configuration watcher with hot-reload.
func ProvideWatcher(loader *Loader, cfg *Config, lc fx.Lifecycle, log *logger.Logger) *Watcher {
	watcher := NewWatcher(loader, cfg, log.Named("config"))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting configuration watcher",
				zap.String("file", loader.GetConfigPath()),
			)
			return watcher.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping configuration watcher")
			watcher.Stop()
			return nil
		},
	})

	return watcher
}
