// Package config provides configuration management for botcore.
// It uses Viper for configuration loading with support for:
// - JSON and YAML files
// - Environment variables and .env files
// - Hot-reload of the bot section
// - Default values
package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config represents the complete botcore configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot" json:"bot" yaml:"bot"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch" json:"dispatch" yaml:"dispatch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" json:"scheduler" yaml:"scheduler"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" json:"heartbeat" yaml:"heartbeat"`
	Discord   DiscordConfig   `mapstructure:"discord" json:"discord" yaml:"discord"`
	Redis     RedisConfig     `mapstructure:"redis" json:"redis" yaml:"redis"`
	State     StateConfig     `mapstructure:"state" json:"state" yaml:"state"`
	Report    ReportConfig    `mapstructure:"report" json:"report" yaml:"report"`
	Logger    LoggerConfig    `mapstructure:"logger" json:"logger" yaml:"logger"`
	mu        sync.RWMutex
}

// BotConfig holds the command surface settings.
type BotConfig struct {
	// Prefix marks a message as a potential command.
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	// Admins are user ids with bot-admin privileges.
	Admins []string `mapstructure:"admins" json:"admins" yaml:"admins"`
	// DropTrailingEmpty drops a single trailing empty argument token.
	DropTrailingEmpty bool `mapstructure:"drop_trailing_empty" json:"drop_trailing_empty" yaml:"drop_trailing_empty"`
}

// DispatchConfig configures the async execution queue.
type DispatchConfig struct {
	Workers  int           `mapstructure:"workers" json:"workers" yaml:"workers"`
	IdleWait time.Duration `mapstructure:"idle_wait" json:"idle_wait" yaml:"idle_wait"`
}

// SchedulerConfig configures the scheduled action timer.
type SchedulerConfig struct {
	Cadence time.Duration `mapstructure:"cadence" json:"cadence" yaml:"cadence"`
}

// HeartbeatConfig configures the presence heartbeat.
type HeartbeatConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// Schedule is a cron expression for presence updates.
	Schedule string `mapstructure:"schedule" json:"schedule" yaml:"schedule"`
	// StartDelay postpones the first update after boot.
	StartDelay time.Duration `mapstructure:"start_delay" json:"start_delay" yaml:"start_delay"`
}

// DiscordConfig for the Discord platform adapter.
type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" json:"token" yaml:"token"`
	// AllowFrom limits command handling to these user ids. Empty allows all.
	AllowFrom []string `mapstructure:"allow_from" json:"allow_from" yaml:"allow_from"`
	// SendRate is the outbound message rate per second.
	SendRate  float64 `mapstructure:"send_rate" json:"send_rate" yaml:"send_rate"`
	SendBurst int     `mapstructure:"send_burst" json:"send_burst" yaml:"send_burst"`
}

// RedisConfig holds the shared Redis connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr" yaml:"addr"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`
}

// StateConfig selects the state backend.
type StateConfig struct {
	Backend  string `mapstructure:"backend" json:"backend" yaml:"backend"`
	FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`
	Prefix   string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	AutoSave bool   `mapstructure:"auto_save" json:"auto_save" yaml:"auto_save"`
	// SaveInterval in seconds for the file backend.
	SaveInterval int `mapstructure:"save_interval" json:"save_interval" yaml:"save_interval"`
}

// ReportConfig routes exception reports to a chat channel.
type ReportConfig struct {
	ChannelID string `mapstructure:"channel_id" json:"channel_id" yaml:"channel_id"`
	// RoleID is mentioned on every report when set.
	RoleID string `mapstructure:"role_id" json:"role_id" yaml:"role_id"`
}

// LoggerConfig mirrors logger.Config in file form.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path" yaml:"output_path"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
	Development bool   `mapstructure:"development" json:"development" yaml:"development"`
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".botcore")

	return &Config{
		Bot: BotConfig{
			Prefix: "/",
			Admins: []string{},
		},
		Dispatch: DispatchConfig{
			Workers:  1,
			IdleWait: 30 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			Cadence: 100 * time.Millisecond,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:    true,
			Schedule:   "* * * * *",
			StartDelay: 20 * time.Second,
		},
		Discord: DiscordConfig{
			AllowFrom: []string{},
			SendRate:  5,
			SendBurst: 5,
		},
		State: StateConfig{
			Backend:      "file",
			FilePath:     filepath.Join(base, "state.json"),
			Prefix:       "botcore:",
			AutoSave:     true,
			SaveInterval: 5,
		},
		Logger: LoggerConfig{
			Level:      "info",
			OutputPath: filepath.Join(base, "logs", "botcore.log"),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Prefix returns the command prefix (thread-safe).
func (c *Config) Prefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Bot.Prefix
}

// IsBotAdmin reports whether userID is a configured bot admin (thread-safe).
func (c *Config) IsBotAdmin(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.Bot.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// ApplyBot replaces the hot-reloadable bot section.
func (c *Config) ApplyBot(bot BotConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bot = bot
}

// StatePath returns the expanded state file path.
func (c *Config) StatePath() string {
	return expandPath(c.State.FilePath)
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
