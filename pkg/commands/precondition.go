package commands

import (
	"context"
	"fmt"

	"botcore/pkg/platform"
)

// ErrDMNotAllowed is the single failure reported when a guild-only command is
// invoked from a direct message.
const ErrDMNotAllowed = "This command can not be used in DM channels!"

// CheckFunc tests a context. message explains a failure.
type CheckFunc func(ctx context.Context, c *Context) (ok bool, message string)

// Precondition is a reusable check evaluated before a command runs or is
// listed in help. RequireGuild selects CheckGuild over Check.
type Precondition struct {
	Description        string
	RequireGuild       bool
	OverrideAsBotAdmin bool

	Check      CheckFunc
	CheckGuild CheckFunc
}

// String returns the description.
func (p Precondition) String() string { return p.Description }

func (p Precondition) validate() error {
	if p.RequireGuild && p.CheckGuild == nil {
		return fmt.Errorf("precondition %q requires a guild check", p.Description)
	}
	if !p.RequireGuild && p.Check == nil {
		return fmt.Errorf("precondition %q requires a check", p.Description)
	}
	return nil
}

func (p Precondition) run(ctx context.Context, c *Context) (bool, string) {
	check := p.Check
	if p.RequireGuild {
		check = p.CheckGuild
	}
	ok, msg := check(ctx, c)
	if !ok && msg == "" {
		msg = "Precondition failed: " + p.Description
	}
	return ok, msg
}

// Evaluate runs every precondition and collects the failure messages. A
// guild-requiring evaluation from a DM fails with ErrDMNotAllowed alone.
// Failures of preconditions with OverrideAsBotAdmin are dropped for
// privileged callers.
func Evaluate(ctx context.Context, requireGuild bool, preconditions []Precondition, c *Context, privileged bool) []string {
	if requireGuild && c.Kind() != KindGuild {
		return []string{ErrDMNotAllowed}
	}

	var failures []string
	for _, p := range preconditions {
		if p.RequireGuild && c.Kind() != KindGuild {
			failures = append(failures, ErrDMNotAllowed)
			continue
		}
		ok, msg := p.run(ctx, c)
		if ok || (p.OverrideAsBotAdmin && privileged) {
			continue
		}
		failures = append(failures, msg)
	}
	return failures
}

// CanExecute evaluates the execute preconditions of cmd.
func CanExecute(ctx context.Context, cmd *Command, c *Context) []string {
	return Evaluate(ctx, cmd.RequireGuildContext(), cmd.ExecutePreconditions, c, c.IsBotAdmin)
}

// CanView evaluates the view preconditions of cmd.
func CanView(ctx context.Context, cmd *Command, c *Context) []string {
	return Evaluate(ctx, cmd.RequireGuildContext(), cmd.ViewPreconditions, c, c.IsBotAdmin)
}

// VarReader reads per-guild configuration variables.
type VarReader interface {
	GuildVar(ctx context.Context, guildID, name string) (string, bool, error)
}

// RequireBotAdmin passes for bot administrators only.
func RequireBotAdmin() Precondition {
	return Precondition{
		Description: "Requires BotAdmin Privileges",
		Check: func(ctx context.Context, c *Context) (bool, string) {
			if c.IsBotAdmin {
				return true, ""
			}
			return false, "BotAdmin privileges required!"
		},
	}
}

// IsOwnerOrAdmin passes for the guild owner and members holding an
// administrator role.
func IsOwnerOrAdmin() Precondition {
	return Precondition{
		Description:        "Be Guildowner or Admin!",
		RequireGuild:       true,
		OverrideAsBotAdmin: true,
		CheckGuild: func(ctx context.Context, c *Context) (bool, string) {
			const denied = "You are neither Owner of this Guild or have a role with Admin permission!"
			if c.Author.ID == c.Guild.OwnerID {
				return true, ""
			}
			if c.Member == nil {
				return false, denied
			}
			roles, err := c.Platform.Roles(ctx, c.Guild.ID)
			if err != nil {
				return false, "Could not load guild roles!"
			}
			for _, id := range c.Member.RoleIDs {
				if r, ok := platform.FindRole(roles, id); ok && r.Administrator {
					return true, ""
				}
			}
			return false, denied
		},
	}
}

// HasRole passes when the member holds the role whose id is stored in the
// guild variable varName.
func HasRole(vars VarReader, varName string) Precondition {
	return Precondition{
		Description:        "Requires role `" + varName + "`",
		RequireGuild:       true,
		OverrideAsBotAdmin: true,
		CheckGuild: func(ctx context.Context, c *Context) (bool, string) {
			roleID, ok, err := vars.GuildVar(ctx, c.Guild.ID, varName)
			if err != nil || !ok || roleID == "" {
				return false, fmt.Sprintf("The guild config variable `%s` has to be set to the correct role id!", varName)
			}
			if c.Member != nil && c.Member.HasRole(roleID) {
				return true, ""
			}
			return false, fmt.Sprintf("You do not have required role <@&%s>!", roleID)
		},
	}
}
