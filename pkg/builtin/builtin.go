// Package builtin provides the commands every botcore deployment ships with:
// the manual, bot information, guild variables, channel policies, bot admin
// management, reminders and user lookup.
package builtin

import (
	"context"
	"fmt"
	"time"

	"botcore/pkg/commands"
	"botcore/pkg/logger"
	"botcore/pkg/scheduler"
	"botcore/pkg/state"
)

// Collection names.
const (
	CollectionConfig  = "Config"
	CollectionUtility = "Utility"
)

// Set registers and serves the built-in commands.
type Set struct {
	log       *logger.Logger
	registry  *commands.Registry
	store     *state.Store
	scheduler *scheduler.Scheduler
	started   time.Time
}

// New creates the built-in command set.
func New(log *logger.Logger, registry *commands.Registry, store *state.Store, sched *scheduler.Scheduler) *Set {
	return &Set{
		log:       log,
		registry:  registry,
		store:     store,
		scheduler: sched,
		started:   time.Now(),
	}
}

// Register adds every built-in command and the argument parsers they need.
func (s *Set) Register() error {
	if err := registerParsers(s.registry); err != nil {
		return err
	}

	config, err := s.registry.NewCollection(CollectionConfig, "Guild variables, channel policies and bot admins")
	if err != nil {
		return err
	}
	utility, err := s.registry.NewCollection(CollectionUtility, "Reminders and lookups")
	if err != nil {
		return err
	}

	builtins := []struct {
		identifier string
		command    *commands.Command
		collection *commands.Collection
	}{
		{"help", s.helpCommand(), nil},
		{"man", s.manualCommand(), nil},
		{"about", s.aboutCommand(), nil},
		{"guildvar", s.guildVarCommand(), config},
		{"channelpolicy", s.channelPolicyCommand(), config},
		{"botadmin", s.botAdminCommand(), config},
		{"remind", s.remindCommand(), utility},
		{"userinfo", s.userInfoCommand(), utility},
	}

	for _, b := range builtins {
		if err := s.registry.Register(b.identifier, b.command, b.collection); err != nil {
			return fmt.Errorf("failed to register %s: %w", b.identifier, err)
		}
	}
	return nil
}

func replyText(ctx context.Context, c *commands.Context, description string) error {
	return c.ReplyEmbed(ctx, embedText(description))
}
