package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/dispatch"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/platform/memory"
)

// Ids of the simulated console world.
const (
	consoleBotID     = "1"
	consoleUserID    = "100"
	consoleGuildID   = "1000"
	consoleChannelID = "1001"
	consoleDMID      = "1002"
)

var consoleAdmin bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Try commands in a local simulated guild",
	Long: `Start an interactive console that feeds each line to the engine as a
message in a simulated guild. Replies are printed as they arrive.

Console commands:
  :dm      switch to direct messages
  :guild   switch back to the guild channel
  exit     leave the console`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleAdmin, "admin", false, "treat the console user as a bot admin")
}

// newWorld builds the simulated guild the console talks in.
func newWorld() *memory.Platform {
	p := memory.New(platform.User{ID: consoleBotID, Username: "botcore", Bot: true})
	user := platform.User{ID: consoleUserID, Username: "console"}
	p.AddUser(user)
	p.AddGuild(platform.Guild{ID: consoleGuildID, Name: "Console", OwnerID: consoleUserID})
	p.AddChannel(platform.Channel{ID: consoleChannelID, GuildID: consoleGuildID, Name: "general", Kind: platform.ChannelText})
	p.AddChannel(platform.Channel{ID: consoleDMID, Name: "console", Kind: platform.ChannelDM})
	p.AddMember(platform.Member{User: user, GuildID: consoleGuildID})
	return p
}

// session is the console's view of the conversation.
type session struct {
	mu  sync.Mutex
	out io.Writer

	dm     atomic.Bool
	nextID atomic.Int64
}

func (s *session) setOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

func (s *session) print(f func(w io.Writer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.out)
}

func (s *session) message(content string) platform.Message {
	msg := platform.Message{
		ID:        strconv.FormatInt(s.nextID.Add(1), 10),
		Content:   content,
		Author:    platform.User{ID: consoleUserID, Username: "console"},
		ChannelID: consoleChannelID,
		GuildID:   consoleGuildID,
	}
	if s.dm.Load() {
		msg.ChannelID = consoleDMID
		msg.GuildID = ""
	}
	return msg
}

func (s *session) prompt() string {
	if s.dm.Load() {
		return "@console> "
	}
	return "#general> "
}

func runConsole(cmd *cobra.Command, args []string) error {
	world := newWorld()
	sess := &session{out: cmd.OutOrStdout()}
	world.OnSend = func(sent memory.Sent) {
		sess.print(func(w io.Writer) { renderReply(w, sent.Reply) })
	}
	world.OnReact = func(r memory.Reaction) {
		sess.print(func(w io.Writer) { fmt.Fprintf(w, "[reaction %s]\n", r.Emoji) })
	}

	var d *dispatch.Dispatcher
	app := fx.New(consoleOptions(world, &d), fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping console: %v\n", err)
		}
	}()

	return consoleLoop(ctx, cmd.OutOrStdout(), sess, d)
}

func consoleLoop(ctx context.Context, out io.Writer, sess *session, d *dispatch.Dispatcher) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sess.prompt(),
		HistoryFile:     filepath.Join(os.TempDir(), ".botcore_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()
	sess.setOutput(rl.Stdout())

	fmt.Fprintln(out, "botcore console, type exit to leave")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case ":dm":
			sess.dm.Store(true)
			rl.SetPrompt(sess.prompt())
			continue
		case ":guild":
			sess.dm.Store(false)
			rl.SetPrompt(sess.prompt())
			continue
		}

		// Failures are answered in the conversation.
		_ = d.HandleMessage(ctx, sess.message(input))
	}
}

// consoleOptions builds the engine on the simulated world with logging
// kept off the terminal.
func consoleOptions(world *memory.Platform, d **dispatch.Dispatcher) fx.Option {
	return fx.Options(
		coreModules(),
		fx.Provide(func() platform.Platform { return world }),
		fx.Decorate(func(c *logger.Config) *logger.Config {
			c.Quiet = true
			return c
		}),
		fx.Decorate(func(c *config.Config) *config.Config {
			if consoleAdmin {
				c.Bot.Admins = append(c.Bot.Admins, consoleUserID)
			}
			return c
		}),
		fx.Populate(d),
	)
}

// renderReply prints a reply as plain text.
func renderReply(w io.Writer, reply platform.Reply) {
	if reply.Content != "" {
		fmt.Fprintln(w, reply.Content)
	}
	e := reply.Embed
	if e == nil {
		return
	}
	if e.Title != "" {
		fmt.Fprintf(w, "== %s ==\n", e.Title)
	}
	if e.Description != "" {
		fmt.Fprintln(w, e.Description)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(w, "-- %s\n", f.Name)
		fmt.Fprintln(w, indent(f.Value))
	}
	if e.Footer != "" {
		fmt.Fprintf(w, "(%s)\n", e.Footer)
	}
}

func indent(s string) string {
	return "   " + strings.ReplaceAll(s, "\n", "\n   ")
}
