package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"botcore/pkg/logger"
)

// ChangeHandler runs after a reload was applied to the live config.
type ChangeHandler func(*Config) error

// Watcher hot-reloads the config file. Only the bot section and the log
// level take effect at runtime; every other section needs a restart.
type Watcher struct {
	loader *Loader
	live   *Config
	log    *logger.Logger

	mu       sync.Mutex
	handlers []ChangeHandler
	active   bool
}

// NewWatcher watches the file loader was loaded from and applies changes
// to live.
func NewWatcher(loader *Loader, live *Config, log *logger.Logger) *Watcher {
	return &Watcher{loader: loader, live: live, log: log}
}

// AddHandler registers fn to run after every applied reload.
func (w *Watcher) AddHandler(fn ChangeHandler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, fn)
	w.mu.Unlock()
}

// Start subscribes to file change events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active {
		return errors.New("config watcher already started")
	}
	w.active = true

	w.loader.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := w.Reload(e.Name); err != nil {
			w.log.Warn("Config reload rejected", zap.String("file", e.Name), zap.Error(err))
		}
	})
	w.loader.viper.WatchConfig()
	return nil
}

// Stop ignores further change events. viper cannot remove its watch.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.active = false
	w.mu.Unlock()
}

// Reload reads path and applies it. The live config is left untouched when
// the file does not load or validate.
func (w *Watcher) Reload(path string) error {
	w.mu.Lock()
	active := w.active
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()
	if !active {
		return nil
	}

	next, err := NewLoader().Load(path)
	if err != nil {
		return err
	}
	if err := ValidateConfig(next); err != nil {
		return err
	}

	w.live.ApplyBot(next.Bot)
	if err := w.log.SetLevel(logger.Level(next.Logger.Level)); err != nil {
		return fmt.Errorf("applying log level: %w", err)
	}
	w.log.Info("Configuration reloaded",
		zap.String("prefix", next.Bot.Prefix),
		zap.Int("admins", len(next.Bot.Admins)),
		zap.String("log_level", next.Logger.Level),
	)

	for _, fn := range handlers {
		if err := fn(w.live); err != nil {
			w.log.Warn("Config change handler failed", zap.Error(err))
		}
	}
	return nil
}
