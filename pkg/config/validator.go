package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"botcore/pkg/logger"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field failed validation.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateBot(&cfg.Bot)
	v.validateDispatch(&cfg.Dispatch)
	v.validateScheduler(&cfg.Scheduler)
	v.validateHeartbeat(&cfg.Heartbeat)
	v.validateDiscord(&cfg.Discord)
	v.validateState(&cfg.State, &cfg.Redis)
	v.validateLogger(&cfg.Logger)

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

func (v *Validator) validateBot(cfg *BotConfig) {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		v.addError("bot.prefix", "prefix is required")
	} else if strings.ContainsRune(prefix, ':') {
		v.addError("bot.prefix", "prefix cannot contain ':'")
	}
	for i, id := range cfg.Admins {
		if strings.TrimSpace(id) == "" {
			v.addError(fmt.Sprintf("bot.admins[%d]", i), "admin id cannot be empty")
		}
	}
}

func (v *Validator) validateDispatch(cfg *DispatchConfig) {
	if cfg.Workers < 1 {
		v.addError("dispatch.workers", "workers must be at least 1")
	}
	if cfg.IdleWait <= 0 {
		v.addError("dispatch.idle_wait", "idle_wait must be greater than 0")
	}
}

func (v *Validator) validateScheduler(cfg *SchedulerConfig) {
	if cfg.Cadence < time.Millisecond {
		v.addError("scheduler.cadence", "cadence must be at least 1ms")
	}
}

func (v *Validator) validateHeartbeat(cfg *HeartbeatConfig) {
	if !cfg.Enabled {
		return
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		v.addError("heartbeat.schedule", fmt.Sprintf("invalid schedule: %v", err))
	}
	if cfg.StartDelay < 0 {
		v.addError("heartbeat.start_delay", "start_delay cannot be negative")
	}
}

func (v *Validator) validateDiscord(cfg *DiscordConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Token == "" {
		v.addError("discord.token", "token is required when Discord is enabled")
	}
	if cfg.SendRate <= 0 {
		v.addError("discord.send_rate", "send_rate must be greater than 0")
	}
	if cfg.SendBurst < 1 {
		v.addError("discord.send_burst", "send_burst must be at least 1")
	}
}

func (v *Validator) validateState(cfg *StateConfig, redis *RedisConfig) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "file", "":
		if strings.TrimSpace(cfg.FilePath) == "" {
			v.addError("state.file_path", "file_path is required for the file backend")
		}
	case "redis":
		if strings.TrimSpace(redis.Addr) == "" {
			v.addError("redis.addr", "addr is required for the redis backend")
		}
	default:
		v.addError("state.backend", "backend must be one of: file, redis")
	}
}

func (v *Validator) validateLogger(cfg *LoggerConfig) {
	if _, err := logger.ParseLevel(logger.Level(cfg.Level)); err != nil {
		v.addError("logger.level", err.Error())
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateConfig is a convenience function to validate a configuration.
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.Validate(cfg)
}
