package builtin

import (
	"context"
	"fmt"
	"strings"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
	"botcore/pkg/state"
)

// targetDefault selects the guild-wide default policy instead of a channel.
const targetDefault = "default"

type policyChange struct {
	channel *platform.Channel
	mode    string
	policy  state.ChannelPolicy
}

func (p policyChange) target() string {
	if p.channel == nil {
		return "the guild default"
	}
	return p.channel.Mention()
}

func (s *Set) channelPolicyCommand() *commands.Command {
	return &commands.Command{
		Summary: "Shows or changes which commands may run in a channel",
		Remarks: "A channel without its own policy uses the guild default; without either every command is allowed. Bot admins are never restricted.",
		Arguments: []commands.Argument{
			{Name: "Target", Help: "A text channel, or `default` for the guild-wide default"},
			{Name: "Mode", Help: "One of `show`, `open` (all commands), `close` (no commands), `only` (listed collections) or `reset`"},
			{Name: "Collections", Help: "Command collections allowed in `only` mode", Optional: true, Multiple: true},
		},
		ExecutePreconditions: []commands.Precondition{commands.IsOwnerOrAdmin()},
		ViewPreconditions:    []commands.Precondition{commands.IsOwnerOrAdmin()},
		Behavior: &commands.Handler[policyChange]{
			ParseGuild: s.parseChannelPolicy,
			ExecGuild:  s.execChannelPolicy,
		},
	}
}

func (s *Set) parseChannelPolicy(ctx context.Context, c *commands.Context) (policyChange, error) {
	var p policyChange

	target, _ := c.Arg(0)
	if !strings.EqualFold(target, targetDefault) {
		channel, err := commands.ParseArg[platform.Channel](ctx, c, 0)
		if err != nil {
			return p, err
		}
		p.channel = &channel
	}

	mode, _ := c.Arg(1)
	p.mode = strings.ToLower(mode)
	switch p.mode {
	case "show", "reset":
	case "open":
		p.policy = state.AllowAll
	case "close":
		p.policy = state.ChannelPolicy{AllowCommands: false}
	case "only":
		names := c.Arguments()[2:]
		if len(names) == 0 {
			return p, commands.Invalid("Collections", "At least one command collection is required!")
		}
		p.policy = state.ChannelPolicy{AllowCommands: true}
		for _, name := range names {
			collection, ok := s.registry.Collection(name)
			if !ok {
				return p, commands.Invalid("Collections", fmt.Sprintf("Could not find a command collection named `%s`!", name))
			}
			p.policy.Collections = append(p.policy.Collections, collection.Name)
		}
	default:
		return p, commands.Invalid("Mode", "Must be one of `show`, `open`, `close`, `only` or `reset`!")
	}
	return p, nil
}

func (s *Set) execChannelPolicy(ctx context.Context, c *commands.Context, p policyChange) error {
	guildID := c.Guild.ID

	switch p.mode {
	case "show":
		var (
			policy state.ChannelPolicy
			err    error
		)
		if p.channel == nil {
			policy, err = s.store.ChannelPolicy(ctx, guildID, "")
		} else {
			policy, err = s.store.ChannelPolicy(ctx, guildID, p.channel.ID)
		}
		if err != nil {
			return err
		}
		return c.ReplyEmbed(ctx, platform.Embed{
			Title:       "Channel policy for " + p.target(),
			Description: describePolicy(policy),
			Color:       commands.ColorDefault,
		})

	case "reset":
		var err error
		if p.channel == nil {
			err = s.store.ClearGuildPolicy(ctx, guildID)
		} else {
			err = s.store.ClearChannelPolicy(ctx, p.channel.ID)
		}
		if err != nil {
			return err
		}
		return replyText(ctx, c, "Removed the channel policy of "+p.target())

	default:
		var err error
		if p.channel == nil {
			err = s.store.SetGuildPolicy(ctx, guildID, p.policy)
		} else {
			err = s.store.SetChannelPolicy(ctx, p.channel.ID, p.policy)
		}
		if err != nil {
			return err
		}
		return replyText(ctx, c, fmt.Sprintf("Channel policy of %s: %s", p.target(), describePolicy(p.policy)))
	}
}

func describePolicy(p state.ChannelPolicy) string {
	switch {
	case !p.AllowCommands:
		return "No commands allowed"
	case len(p.Collections) == 0:
		return "All commands allowed"
	default:
		return "Only commands from `" + strings.Join(p.Collections, "`, `") + "`"
	}
}
