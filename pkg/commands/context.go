package commands

import (
	"context"
	"errors"

	"botcore/pkg/args"
	"botcore/pkg/platform"
)

// Context is the state of a single command invocation. It is created per
// message and never shared between invocations.
type Context struct {
	Message platform.Message
	Author  platform.User
	Channel platform.Channel
	// Guild and Member are nil for direct messages.
	Guild  *platform.Guild
	Member *platform.Member

	Text    Text
	Command *Command
	Result  SearchResult

	IsBotAdmin bool

	Platform platform.Platform
	Parsers  *args.Registry
	Parser   *Parser
}

// Kind returns whether the invocation happened in a guild or a DM.
func (c *Context) Kind() ContextKind {
	if c.Guild != nil {
		return KindGuild
	}
	return KindDM
}

// GuildID implements args.Scope.
func (c *Context) GuildID() string {
	if c.Guild == nil {
		return ""
	}
	return c.Guild.ID
}

// AuthorID implements args.Scope.
func (c *Context) AuthorID() string { return c.Author.ID }

// ChannelID implements args.Scope.
func (c *Context) ChannelID() string { return c.Channel.ID }

// Directory implements args.Scope.
func (c *Context) Directory() platform.Directory { return c.Platform }

// Arguments returns the raw argument tokens.
func (c *Context) Arguments() []string { return c.Text.Arguments }

// Arg returns the raw token at i.
func (c *Context) Arg(i int) (string, bool) {
	if i < 0 || i >= len(c.Text.Arguments) {
		return "", false
	}
	return c.Text.Arguments[i], true
}

// Reply sends plain text to the invocation channel.
func (c *Context) Reply(ctx context.Context, content string) error {
	return c.Platform.Send(ctx, c.Channel.ID, platform.Text(content))
}

// ReplyEmbed sends an embed to the invocation channel.
func (c *Context) ReplyEmbed(ctx context.Context, embed platform.Embed) error {
	if embed.Color == 0 {
		embed.Color = ColorDefault
	}
	return c.Platform.Send(ctx, c.Channel.ID, platform.Reply{Embed: &embed})
}

// ReplyError sends an error embed to the invocation channel.
func (c *Context) ReplyError(ctx context.Context, title, description string) error {
	return c.ReplyEmbed(ctx, platform.Embed{Title: title, Description: description, Color: ColorError})
}

var _ args.Scope = (*Context)(nil)

// argumentName names the declared argument consuming token i.
func (c *Context) argumentName(i int) string {
	if c.Command == nil || len(c.Command.Arguments) == 0 {
		return ""
	}
	if i >= len(c.Command.Arguments) {
		i = len(c.Command.Arguments) - 1
	}
	return c.Command.Arguments[i].Name
}

// ParseArg parses token i into a T with the registered parser for T.
func ParseArg[T any](ctx context.Context, c *Context, i int) (T, error) {
	var zero T
	token, ok := c.Arg(i)
	if !ok {
		return zero, Invalid(c.argumentName(i), "Argument missing!")
	}

	v, err := args.Parse[T](ctx, c.Parsers, c, token)
	if err != nil {
		var perr *args.ParseError
		if errors.As(err, &perr) {
			return zero, Invalid(c.argumentName(i), perr.Reason)
		}
		return zero, err
	}
	return v, nil
}

// ParseOptional parses token i, returning def when the token is absent.
func ParseOptional[T any](ctx context.Context, c *Context, i int, def T) (T, error) {
	if _, ok := c.Arg(i); !ok {
		return def, nil
	}
	return ParseArg[T](ctx, c, i)
}

// ParseRest parses every token from index from onwards.
func ParseRest[T any](ctx context.Context, c *Context, from int) ([]T, error) {
	var out []T
	for i := from; i < len(c.Text.Arguments); i++ {
		v, err := ParseArg[T](ctx, c, i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
