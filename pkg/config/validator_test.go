package config

import (
	"testing"
)

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateConfigCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bot.Prefix = "a:"
	cfg.Dispatch.Workers = 0
	cfg.Heartbeat.Schedule = "every so often"
	cfg.Discord.Enabled = true
	cfg.State.Backend = "sqlite"
	cfg.Logger.Level = "chatty"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation errors")
	}

	validationErrors, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	for _, field := range []string{"bot.prefix", "dispatch.workers", "heartbeat.schedule", "discord.token", "state.backend", "logger.level"} {
		if !validationErrors.Has(field) {
			t.Errorf("expected %s validation error, got %v", field, err)
		}
	}
}

func TestValidateConfigRequiresRedisAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.State.Backend = "redis"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation error for redis backend")
	}
	if !err.(ValidationErrors).Has("redis.addr") {
		t.Fatalf("expected redis.addr validation error, got %v", err)
	}

	cfg.Redis.Addr = "localhost:6379"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected redis config to validate, got %v", err)
	}
}

func TestIsBotAdminFollowsApplyBot(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsBotAdmin("10") {
		t.Fatalf("expected no admins by default")
	}

	cfg.ApplyBot(BotConfig{Prefix: "!", Admins: []string{"10"}})
	if !cfg.IsBotAdmin("10") {
		t.Fatalf("expected 10 to be a bot admin")
	}
	if cfg.Prefix() != "!" {
		t.Fatalf("expected prefix !, got %q", cfg.Prefix())
	}
}
