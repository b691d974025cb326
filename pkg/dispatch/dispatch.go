// Package dispatch routes inbound messages to registered commands: it gates
// on the prefix, resolves the command, checks channel policy and
// preconditions, parses arguments and runs the handler inline or on the
// work queue.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/errreport"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/state"
	"botcore/pkg/workqueue"
)

// Source tags reports raised by the dispatcher.
const Source = "dispatch"

// ReactionUnknown acknowledges messages naming no known command.
const ReactionUnknown = "❓"

// Stage is a step of command handling.
type Stage string

const (
	StagePreconditions Stage = "checking preconditions"
	StageParsing       Stage = "parsing arguments"
	StageExecuting     Stage = "executing command"
)

// Reply texts.
const (
	TitlePreconditionsFailed = "Command Execution Failed"
	TitleParsingFailed       = "Argument Parsing Failed!"
	MsgChannelClosed         = "This channel does not allow command execution!"
)

// HandlerError is a failure that escaped a command handler.
type HandlerError struct {
	Command string
	Stage   Stage
	Err     error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("command %s: exception at stage %s: %v", e.Command, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error { return e.Err }

// Access answers the runtime permission questions the dispatcher has.
type Access interface {
	IsBotAdmin(ctx context.Context, userID string) (bool, error)
	ChannelPolicy(ctx context.Context, guildID, channelID string) (state.ChannelPolicy, error)
}

// Dispatcher turns messages into command invocations.
type Dispatcher struct {
	log      *logger.Logger
	cfg      *config.Config
	registry *commands.Registry
	parser   *commands.Parser
	platform platform.Platform
	access   Access
	queue    *workqueue.Queue
	reporter errreport.Reporter
}

// New creates a dispatcher. access may be nil, in which case only configured
// admins are privileged and every channel allows every command.
func New(
	log *logger.Logger,
	cfg *config.Config,
	registry *commands.Registry,
	parser *commands.Parser,
	p platform.Platform,
	access Access,
	queue *workqueue.Queue,
	reporter errreport.Reporter,
) *Dispatcher {
	return &Dispatcher{
		log:      log,
		cfg:      cfg,
		registry: registry,
		parser:   parser,
		platform: p,
		access:   access,
		queue:    queue,
		reporter: reporter,
	}
}

// Start seals the command registry. Messages are accepted afterwards.
func (d *Dispatcher) Start() {
	d.registry.Seal()
	d.log.Info("Dispatcher started",
		zap.String("prefix", d.parser.Prefix()),
		zap.Int("commands", len(d.registry.Commands())),
	)
}

// HandleMessage processes one inbound message. Messages that are not
// commands are ignored. The returned error describes why a command did not
// run; user-facing replies have already been sent when it is returned.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg platform.Message) error {
	if msg.Author.Bot || msg.Author.ID == d.platform.Self().ID {
		return nil
	}

	text, ok := d.parser.Parse(msg.Content)
	if !ok {
		return nil
	}

	c, ok := d.newContext(ctx, msg, text)
	if !ok {
		return nil
	}

	cmd, result := d.registry.Resolve(text.Identifier, text.Count())
	c.Command = cmd
	c.Result = result

	if c.Kind() == commands.KindGuild && !c.IsBotAdmin {
		if reason := d.checkChannelPolicy(ctx, c); reason != "" {
			d.replyError(ctx, c, reason)
			return &commands.PreconditionError{Failures: []string{reason}}
		}
	}

	switch result {
	case commands.NoMatch:
		if err := d.platform.React(ctx, msg.ChannelID, msg.ID, ReactionUnknown); err != nil {
			d.log.Debug("Failed to react to unknown command", zap.Error(err))
		}
		return nil
	case commands.TooFewArguments:
		reason := fmt.Sprintf("The command `%s` requires a minimum of %d arguments!", cmd, cmd.MinimumArgumentCount())
		d.replyError(ctx, c, reason)
		return &commands.ParseError{Reason: reason}
	default:
		return d.Dispatch(ctx, c)
	}
}

// newContext builds the per-message invocation state. ok is false when the
// guild or member behind a guild message cannot be resolved.
func (d *Dispatcher) newContext(ctx context.Context, msg platform.Message, text commands.Text) (*commands.Context, bool) {
	c := &commands.Context{
		Message:  msg,
		Author:   msg.Author,
		Text:     text,
		Platform: d.platform,
		Parsers:  d.registry.Parsers(),
		Parser:   d.parser,
	}

	channel, err := d.platform.Channel(ctx, msg.ChannelID)
	if err != nil {
		channel = platform.Channel{ID: msg.ChannelID, GuildID: msg.GuildID, Kind: platform.ChannelDM}
		if !msg.IsDirect() {
			channel.Kind = platform.ChannelText
		}
	}
	c.Channel = channel

	if !msg.IsDirect() {
		guild, err := d.platform.Guild(ctx, msg.GuildID)
		if err != nil {
			d.log.Debug("Dropping message from unknown guild", zap.String("guild", msg.GuildID), zap.Error(err))
			return nil, false
		}
		member, err := d.platform.Member(ctx, msg.GuildID, msg.Author.ID)
		if err != nil {
			d.log.Debug("Dropping message from unknown member",
				zap.String("guild", msg.GuildID),
				zap.String("user", msg.Author.ID),
				zap.Error(err))
			return nil, false
		}
		c.Guild = &guild
		c.Member = &member
	}

	c.IsBotAdmin = d.isBotAdmin(ctx, msg.Author.ID)
	return c, true
}

func (d *Dispatcher) isBotAdmin(ctx context.Context, userID string) bool {
	if d.cfg != nil && d.cfg.IsBotAdmin(userID) {
		return true
	}
	if d.access == nil {
		return false
	}
	ok, err := d.access.IsBotAdmin(ctx, userID)
	if err != nil {
		d.log.Warn("Failed to read bot admins", zap.Error(err))
		return false
	}
	return ok
}

// checkChannelPolicy returns the rejection message, or "" when allowed.
func (d *Dispatcher) checkChannelPolicy(ctx context.Context, c *commands.Context) string {
	if d.access == nil {
		return ""
	}
	policy, err := d.access.ChannelPolicy(ctx, c.Guild.ID, c.Channel.ID)
	if err != nil {
		d.log.Warn("Failed to read channel policy", zap.String("channel", c.Channel.ID), zap.Error(err))
		return ""
	}
	if !policy.AllowCommands {
		return MsgChannelClosed
	}
	if c.Command != nil {
		name := c.Command.Collection().Name
		if !policy.AllowsCollection(name) {
			return fmt.Sprintf("This channel does not allow commands from the command collection `%s`!", name)
		}
	}
	return ""
}

// Dispatch runs the stage machine for a resolved command: preconditions,
// argument parsing, then execution. Handler errors and panics are reported
// and answered with an exception message naming the stage.
func (d *Dispatcher) Dispatch(ctx context.Context, c *commands.Context) (err error) {
	cmd := c.Command
	stage := StagePreconditions

	defer func() {
		if r := recover(); r != nil {
			err = d.fail(ctx, c, stage, errreport.Recovered(r))
		}
	}()

	if failures := commands.CanExecute(ctx, cmd, c); len(failures) > 0 {
		d.reply(ctx, c, platform.Embed{
			Title:       TitlePreconditionsFailed,
			Description: strings.Join(failures, "\n"),
			Color:       commands.ColorError,
		})
		return &commands.PreconditionError{Failures: failures}
	}

	stage = StageParsing
	parseGuild := false
	if cmd.ParseMethod() != commands.None {
		if parseGuild, err = commands.Route(cmd.ParseMethod(), c.Kind()); err != nil {
			return d.fail(ctx, c, stage, err)
		}
	}
	invoke, err := cmd.Behavior.Parse(ctx, c, parseGuild)
	if err != nil {
		var perr *commands.ParseError
		if errors.As(err, &perr) {
			d.reply(ctx, c, platform.Embed{
				Title:       TitleParsingFailed,
				Description: perr.Error(),
				Color:       commands.ColorError,
			})
			return perr
		}
		return d.fail(ctx, c, stage, err)
	}

	stage = StageExecuting
	execGuild, err := commands.Route(cmd.ExecMethod(), c.Kind())
	if err != nil {
		return d.fail(ctx, c, stage, err)
	}

	d.log.Debug("Executing command",
		zap.String("command", cmd.Identifier()),
		zap.String("author", c.Author.ID),
		zap.String("context", c.Kind().String()),
		zap.Bool("async", cmd.Async),
	)

	if cmd.Async {
		return d.enqueue(ctx, c, invoke, execGuild)
	}
	if err := invoke(ctx, c, execGuild); err != nil {
		return d.fail(ctx, c, stage, err)
	}
	return nil
}

// enqueue hands an async command to the work queue. A typing indicator runs
// until the command finishes or is dropped.
func (d *Dispatcher) enqueue(ctx context.Context, c *commands.Context, invoke commands.Invocation, guild bool) error {
	release, err := d.platform.Typing(ctx, c.Channel.ID)
	if err != nil {
		d.log.Debug("Failed to start typing indicator", zap.Error(err))
		release = nil
	}

	_, err = d.queue.Enqueue(workqueue.Task{
		Name: c.Command.Identifier(),
		Run: func(ctx context.Context) error {
			return d.runAsync(ctx, c, invoke, guild)
		},
		Release: release,
	})
	if err != nil {
		if release != nil {
			release()
		}
		return d.fail(ctx, c, StageExecuting, err)
	}
	return nil
}

// runAsync executes a queued command. Failures are returned to the queue for
// reporting; the invoking user gets no reply.
func (d *Dispatcher) runAsync(ctx context.Context, c *commands.Context, invoke commands.Invocation, guild bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errreport.Recovered(r)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			err = &HandlerError{Command: c.Command.Identifier(), Stage: StageExecuting, Err: err}
		}
	}()
	return invoke(ctx, c, guild)
}

// fail reports err and answers with the stage it escaped from.
func (d *Dispatcher) fail(ctx context.Context, c *commands.Context, stage Stage, err error) error {
	herr := &HandlerError{Command: c.Command.Identifier(), Stage: stage, Err: err}
	if errors.Is(err, context.Canceled) {
		return herr
	}

	d.reporter.Report(ctx, herr, Source, fmt.Sprintf("Command `%s` failed at stage `%s`", c.Command, stage))
	d.send(ctx, c, platform.Reply{
		Content: fmt.Sprintf("Exception at stage `%s`", stage),
		Embed:   exceptionEmbed(err),
	})
	return herr
}

func (d *Dispatcher) replyError(ctx context.Context, c *commands.Context, description string) {
	d.reply(ctx, c, platform.Embed{Description: description, Color: commands.ColorError})
}

func (d *Dispatcher) reply(ctx context.Context, c *commands.Context, embed platform.Embed) {
	if err := c.ReplyEmbed(ctx, embed); err != nil {
		d.log.Warn("Failed to send reply", zap.String("channel", c.Channel.ID), zap.Error(err))
	}
}

func (d *Dispatcher) send(ctx context.Context, c *commands.Context, reply platform.Reply) {
	if err := d.platform.Send(ctx, c.Channel.ID, reply); err != nil {
		d.log.Warn("Failed to send reply", zap.String("channel", c.Channel.ID), zap.Error(err))
	}
}

func exceptionEmbed(err error) *platform.Embed {
	title := "Error"
	var perr *errreport.PanicError
	if errors.As(err, &perr) {
		title = "Panic"
	}
	return &platform.Embed{
		Title:       title,
		Description: "```\n" + err.Error() + "\n```",
		Color:       commands.ColorError,
	}
}
