package commands

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported is returned when a step has no handler for any context.
	ErrUnsupported = errors.New("operation not supported by command")
	// ErrUnroutable is returned when a guild-only step is reached from a DM.
	ErrUnroutable = errors.New("command step cannot run in this context")
)

// Invocation executes a command with arguments bound by its parse step.
// guild selects the guild-aware execution handler.
type Invocation func(ctx context.Context, c *Context, guild bool) error

// Behavior is the parse and execute logic of a command.
type Behavior interface {
	ParseMethod() HandledContexts
	ExecMethod() HandledContexts
	// Parse resolves arguments with the guild-aware or context-free parser and
	// returns an invocation bound to the result. A ParseMethod of None binds
	// no arguments.
	Parse(ctx context.Context, c *Context, guild bool) (Invocation, error)
}

// Route selects the handler variant for method in a context of kind. DMOnly
// handlers also serve guild contexts.
func Route(method HandledContexts, kind ContextKind) (guild bool, err error) {
	switch method {
	case Both:
		return kind == KindGuild, nil
	case DMOnly:
		return false, nil
	case GuildOnly:
		if kind != KindGuild {
			return false, ErrUnroutable
		}
		return true, nil
	default:
		return false, ErrUnsupported
	}
}

func methodOf(dm, guild bool) HandledContexts {
	switch {
	case dm && guild:
		return Both
	case dm:
		return DMOnly
	case guild:
		return GuildOnly
	default:
		return None
	}
}

// Handler is a Behavior whose parsed arguments have type A. Leave a field nil
// to opt out of that context.
type Handler[A any] struct {
	ParseDM    func(ctx context.Context, c *Context) (A, error)
	ParseGuild func(ctx context.Context, c *Context) (A, error)
	ExecDM     func(ctx context.Context, c *Context, args A) error
	ExecGuild  func(ctx context.Context, c *Context, args A) error
}

// ParseMethod implements Behavior.
func (h *Handler[A]) ParseMethod() HandledContexts {
	return methodOf(h.ParseDM != nil, h.ParseGuild != nil)
}

// ExecMethod implements Behavior.
func (h *Handler[A]) ExecMethod() HandledContexts {
	return methodOf(h.ExecDM != nil, h.ExecGuild != nil)
}

// Parse implements Behavior.
func (h *Handler[A]) Parse(ctx context.Context, c *Context, guild bool) (Invocation, error) {
	var args A
	if h.ParseMethod() != None {
		parse := h.ParseDM
		if guild {
			parse = h.ParseGuild
		}
		if parse == nil {
			return nil, ErrUnroutable
		}
		var err error
		if args, err = parse(ctx, c); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, c *Context, guild bool) error {
		exec := h.ExecDM
		if guild {
			exec = h.ExecGuild
		}
		if exec == nil {
			return ErrUnroutable
		}
		return exec(ctx, c, args)
	}, nil
}

// NoArgs is the argument type of commands without a parse step.
type NoArgs struct{}

// Exec builds a Behavior without arguments that runs fn in every context.
func Exec(fn func(ctx context.Context, c *Context) error) *Handler[NoArgs] {
	return &Handler[NoArgs]{
		ExecDM: func(ctx context.Context, c *Context, _ NoArgs) error { return fn(ctx, c) },
	}
}

// ExecGuild builds a Behavior without arguments that only runs inside guilds.
func ExecGuild(fn func(ctx context.Context, c *Context) error) *Handler[NoArgs] {
	return &Handler[NoArgs]{
		ExecGuild: func(ctx context.Context, c *Context, _ NoArgs) error { return fn(ctx, c) },
	}
}
