package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"botcore/pkg/args"
	"botcore/pkg/commands"
	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/platform/memory"
	"botcore/pkg/state"
	"botcore/pkg/workqueue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	errs    []error
	sources []string
}

func (r *recorder) Report(ctx context.Context, err error, source, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.sources = append(r.sources, source)
}

func (r *recorder) last() (source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return "", nil
	}
	return r.sources[len(r.sources)-1], r.errs[len(r.errs)-1]
}

type fakeAccess struct {
	admins   map[string]bool
	policies map[string]state.ChannelPolicy
}

func (f *fakeAccess) IsBotAdmin(ctx context.Context, userID string) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeAccess) ChannelPolicy(ctx context.Context, guildID, channelID string) (state.ChannelPolicy, error) {
	if p, ok := f.policies[channelID]; ok {
		return p, nil
	}
	return state.AllowAll, nil
}

type fixture struct {
	t        *testing.T
	platform *memory.Platform
	registry *commands.Registry
	access   *fakeAccess
	reporter *recorder
	queue    *workqueue.Queue
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := memory.New(platform.User{ID: "1", Username: "botcore", Bot: true})
	p.AddGuild(platform.Guild{ID: "100", Name: "Orca Lounge", OwnerID: "10"})
	p.AddChannel(platform.Channel{ID: "200", GuildID: "100", Name: "general", Kind: platform.ChannelText})
	p.AddChannel(platform.Channel{ID: "201", GuildID: "100", Name: "quiet", Kind: platform.ChannelText})
	p.AddChannel(platform.Channel{ID: "300", Name: "dm", Kind: platform.ChannelDM})
	for _, u := range []platform.User{{ID: "10", Username: "alice"}, {ID: "11", Username: "bob"}, {ID: "99", Username: "root"}} {
		p.AddUser(u)
		p.AddMember(platform.Member{User: u, GuildID: "100"})
	}

	cfg := config.DefaultConfig()
	cfg.Bot.Admins = []string{"99"}

	registry := commands.NewRegistry(args.NewDefaultRegistry())
	reporter := &recorder{}
	queue := workqueue.New(logger.NewNop(), reporter, 1, 10*time.Millisecond)
	access := &fakeAccess{admins: map[string]bool{}, policies: map[string]state.ChannelPolicy{}}

	f := &fixture{
		t:        t,
		platform: p,
		registry: registry,
		access:   access,
		reporter: reporter,
		queue:    queue,
	}
	f.d = New(logger.NewNop(), cfg, registry, commands.NewParser("/"), p, access, queue, reporter)
	return f
}

func (f *fixture) register(identifier string, cmd *commands.Command, collection *commands.Collection) {
	f.t.Helper()
	if err := f.registry.Register(identifier, cmd, collection); err != nil {
		f.t.Fatalf("register %s: %v", identifier, err)
	}
}

func (f *fixture) guildMessage(authorID, channelID, content string) platform.Message {
	author, _ := f.platform.User(context.Background(), authorID)
	return platform.Message{ID: "m1", Content: content, Author: author, ChannelID: channelID, GuildID: "100"}
}

func (f *fixture) dmMessage(authorID, content string) platform.Message {
	author, _ := f.platform.User(context.Background(), authorID)
	return platform.Message{ID: "m2", Content: content, Author: author, ChannelID: "300"}
}

func (f *fixture) lastEmbed() *platform.Embed {
	f.t.Helper()
	sent := f.platform.Sent()
	if len(sent) == 0 {
		f.t.Fatal("expected a reply, got none")
	}
	return sent[len(sent)-1].Reply.Embed
}

// greet takes one required and one optional string argument.
func greetCommand(calls *[]string) *commands.Command {
	return &commands.Command{
		Summary: "Greets someone",
		Arguments: []commands.Argument{
			{Name: "Name"},
			{Name: "Greeting", Optional: true},
		},
		Behavior: &commands.Handler[string]{
			ParseDM: func(ctx context.Context, c *commands.Context) (string, error) {
				return commands.ParseArg[string](ctx, c, 0)
			},
			ExecDM: func(ctx context.Context, c *commands.Context, name string) error {
				*calls = append(*calls, c.Kind().String()+":"+name)
				return c.Reply(ctx, "hello "+name)
			},
		},
	}
}

func TestHandleMessageIgnoresNonCommands(t *testing.T) {
	f := newFixture(t)
	var calls []string
	f.register("greet", greetCommand(&calls), nil)

	for _, msg := range []platform.Message{
		f.dmMessage("10", "hello there"),
		f.dmMessage("10", "/"),
		{Content: "/greet: bot", Author: platform.User{ID: "2", Bot: true}, ChannelID: "300"},
		{Content: "/greet: self", Author: f.platform.Self(), ChannelID: "300"},
	} {
		if err := f.d.HandleMessage(t.Context(), msg); err != nil {
			t.Fatalf("HandleMessage(%q): %v", msg.Content, err)
		}
	}
	if len(calls) != 0 || len(f.platform.Sent()) != 0 || len(f.platform.Reactions()) != 0 {
		t.Fatalf("expected no activity, got calls=%v sent=%d", calls, len(f.platform.Sent()))
	}
}

func TestHandleMessageUnknownCommandReacts(t *testing.T) {
	f := newFixture(t)

	if err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/nope: a")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	reactions := f.platform.Reactions()
	if len(reactions) != 1 || reactions[0].Emoji != ReactionUnknown || reactions[0].MessageID != "m2" {
		t.Fatalf("unexpected reactions: %+v", reactions)
	}
	if len(f.platform.Sent()) != 0 {
		t.Fatal("unknown commands should not produce a reply")
	}
}

func TestHandleMessageTooFewArguments(t *testing.T) {
	f := newFixture(t)
	var calls []string
	f.register("greet", greetCommand(&calls), nil)

	err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/greet"))
	var perr *commands.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	embed := f.lastEmbed()
	if embed == nil || embed.Description != "The command `greet` requires a minimum of 1 arguments!" {
		t.Fatalf("unexpected reply: %+v", embed)
	}
	if embed.Color != commands.ColorError {
		t.Fatalf("expected error color, got %x", embed.Color)
	}
	if len(calls) != 0 {
		t.Fatalf("handler should not run, got %v", calls)
	}
}

func TestHandleMessageRunsPerfectAndTooManyMatches(t *testing.T) {
	f := newFixture(t)
	var calls []string
	f.register("greet", greetCommand(&calls), nil)

	inputs := []platform.Message{
		f.dmMessage("10", "/greet: alice"),
		f.guildMessage("10", "200", "/greet: bob, hi"),
		f.guildMessage("11", "200", "/greet: carol, hi, extra"),
	}
	for _, msg := range inputs {
		if err := f.d.HandleMessage(t.Context(), msg); err != nil {
			t.Fatalf("HandleMessage(%q): %v", msg.Content, err)
		}
	}

	want := []string{"DM:alice", "Guild:bob", "Guild:carol"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestDispatchUsesGuildVariantsInGuilds(t *testing.T) {
	f := newFixture(t)
	var seen []string
	f.register("where", &commands.Command{
		Summary: "Reports the context",
		Behavior: &commands.Handler[commands.NoArgs]{
			ExecDM: func(ctx context.Context, c *commands.Context, _ commands.NoArgs) error {
				seen = append(seen, "dm")
				return nil
			},
			ExecGuild: func(ctx context.Context, c *commands.Context, _ commands.NoArgs) error {
				if c.Guild == nil || c.Member == nil || c.Member.User.ID != "11" {
					t.Errorf("guild context not populated: %+v", c)
				}
				seen = append(seen, "guild")
				return nil
			},
		},
	}, nil)

	_ = f.d.HandleMessage(t.Context(), f.guildMessage("11", "200", "/where"))
	_ = f.d.HandleMessage(t.Context(), f.dmMessage("11", "/where"))

	if strings.Join(seen, ",") != "guild,dm" {
		t.Fatalf("seen = %v", seen)
	}
}

func TestDispatchPreconditionFailures(t *testing.T) {
	f := newFixture(t)
	ran := false
	f.register("locked", &commands.Command{
		Summary: "Never runs",
		ExecutePreconditions: []commands.Precondition{
			{Description: "first", Check: func(ctx context.Context, c *commands.Context) (bool, string) { return false, "no one" }},
			{Description: "second", Check: func(ctx context.Context, c *commands.Context) (bool, string) { return false, "no two" }},
		},
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			ran = true
			return nil
		}),
	}, nil)

	err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/locked"))
	var perr *commands.PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	embed := f.lastEmbed()
	if embed.Title != TitlePreconditionsFailed || embed.Description != "no one\nno two" {
		t.Fatalf("unexpected reply: %+v", embed)
	}
	if ran {
		t.Fatal("handler ran despite failed preconditions")
	}
}

func TestDispatchGuildOnlyCommandFromDM(t *testing.T) {
	f := newFixture(t)
	f.register("kick", &commands.Command{
		Summary:  "Guild only",
		Behavior: commands.ExecGuild(func(ctx context.Context, c *commands.Context) error { return nil }),
	}, nil)

	_ = f.d.HandleMessage(t.Context(), f.dmMessage("10", "/kick"))
	embed := f.lastEmbed()
	if embed.Description != commands.ErrDMNotAllowed {
		t.Fatalf("unexpected reply: %+v", embed)
	}
}

func TestDispatchArgumentParsingFailure(t *testing.T) {
	f := newFixture(t)
	f.register("count", &commands.Command{
		Summary:   "Counts",
		Arguments: []commands.Argument{{Name: "Amount"}},
		Behavior: &commands.Handler[int64]{
			ParseDM: func(ctx context.Context, c *commands.Context) (int64, error) {
				return commands.ParseArg[int64](ctx, c, 0)
			},
			ExecDM: func(ctx context.Context, c *commands.Context, n int64) error { return nil },
		},
	}, nil)

	err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/count: many"))
	var perr *commands.ParseError
	if !errors.As(err, &perr) || perr.Argument != "Amount" {
		t.Fatalf("expected ParseError for Amount, got %v", err)
	}
	embed := f.lastEmbed()
	if embed.Title != TitleParsingFailed || !strings.Contains(embed.Description, args.ReasonInt64) {
		t.Fatalf("unexpected reply: %+v", embed)
	}
}

func TestDispatchReportsHandlerErrorsWithStage(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.register("fail", &commands.Command{
		Summary:  "Fails",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error { return boom }),
	}, nil)
	f.register("panic", &commands.Command{
		Summary:   "Panics while parsing",
		Arguments: []commands.Argument{{Name: "X"}},
		Behavior: &commands.Handler[string]{
			ParseDM: func(ctx context.Context, c *commands.Context) (string, error) { panic("bad parser") },
			ExecDM:  func(ctx context.Context, c *commands.Context, _ string) error { return nil },
		},
	}, nil)

	err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/fail"))
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Stage != StageExecuting || !errors.Is(err, boom) {
		t.Fatalf("expected HandlerError at executing stage, got %v", err)
	}
	sent := f.platform.Sent()
	if got := sent[len(sent)-1].Reply.Content; got != "Exception at stage `executing command`" {
		t.Fatalf("unexpected reply content %q", got)
	}
	if source, rerr := f.reporter.last(); source != Source || !errors.Is(rerr, boom) {
		t.Fatalf("unexpected report %v from %q", rerr, source)
	}

	err = f.d.HandleMessage(t.Context(), f.dmMessage("10", "/panic: x"))
	if !errors.As(err, &herr) || herr.Stage != StageParsing {
		t.Fatalf("expected HandlerError at parsing stage, got %v", err)
	}
	sent = f.platform.Sent()
	if got := sent[len(sent)-1].Reply.Content; got != "Exception at stage `parsing arguments`" {
		t.Fatalf("unexpected reply content %q", got)
	}
}

func TestDispatchAsyncCommandsRunOnQueue(t *testing.T) {
	f := newFixture(t)
	replies := make(chan memory.Sent, 4)
	f.platform.OnSend = func(s memory.Sent) { replies <- s }

	f.register("slow", &commands.Command{
		Summary: "Runs later",
		Async:   true,
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			return c.Reply(ctx, "done")
		}),
	}, nil)
	f.register("slowpanic", &commands.Command{
		Summary: "Panics later",
		Async:   true,
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			panic("async boom")
		}),
	}, nil)
	f.register("slowfail", &commands.Command{
		Summary: "Fails later",
		Async:   true,
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			return errors.New("queue failure")
		}),
	}, nil)

	if err := f.d.HandleMessage(t.Context(), f.dmMessage("10", "/slow")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if f.queue.Len() != 1 {
		t.Fatalf("expected the command to be queued, got %d", f.queue.Len())
	}
	if started, _ := f.platform.TypingCounts(); started != 1 {
		t.Fatalf("expected a typing indicator, got %d", started)
	}

	if err := f.queue.Start(); err != nil {
		t.Fatalf("start queue: %v", err)
	}
	defer f.queue.Stop()

	select {
	case s := <-replies:
		if s.Reply.Content != "done" {
			t.Fatalf("unexpected reply %+v", s.Reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async command did not run")
	}

	for i, name := range []string{"/slowpanic", "/slowfail"} {
		if err := f.d.HandleMessage(t.Context(), f.dmMessage("10", name)); err != nil {
			t.Fatalf("HandleMessage(%s): %v", name, err)
		}

		want := 2 + i
		deadline := time.Now().Add(2 * time.Second)
		for {
			started, released := f.platform.TypingCounts()
			source, err := f.reporter.last()
			if started == want && released == want && source == workqueue.Source && err != nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("%s: typing %d/%d released, last report source %q", name, released, started, source)
			}
			time.Sleep(5 * time.Millisecond)
		}

		_, err := f.reporter.last()
		var herr *HandlerError
		if !errors.As(err, &herr) || herr.Stage != StageExecuting {
			t.Fatalf("%s: expected HandlerError at executing stage, got %v", name, err)
		}
	}

	if err := f.queue.Stop(); err != nil {
		t.Fatalf("stop queue: %v", err)
	}
	select {
	case s := <-replies:
		t.Fatalf("async failures must not be answered, got %+v", s.Reply)
	default:
	}
}

func TestChannelPolicy(t *testing.T) {
	f := newFixture(t)
	var calls []string
	fun, err := f.registry.NewCollection("Fun", "Games")
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	f.register("greet", greetCommand(&calls), nil)
	f.register("roll", &commands.Command{
		Summary: "Rolls",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			calls = append(calls, "roll")
			return nil
		}),
	}, fun)

	f.access.policies["201"] = state.ChannelPolicy{AllowCommands: false}
	f.access.policies["200"] = state.ChannelPolicy{AllowCommands: true, Collections: []string{"Fun"}}

	_ = f.d.HandleMessage(t.Context(), f.guildMessage("10", "201", "/nope"))
	if embed := f.lastEmbed(); embed.Description != MsgChannelClosed {
		t.Fatalf("unexpected reply: %+v", embed)
	}
	if len(f.platform.Reactions()) != 0 {
		t.Fatal("closed channels should not acknowledge unknown commands")
	}

	_ = f.d.HandleMessage(t.Context(), f.guildMessage("10", "200", "/greet: x"))
	if embed := f.lastEmbed(); embed.Description != "This channel does not allow commands from the command collection `Basic`!" {
		t.Fatalf("unexpected reply: %+v", embed)
	}

	_ = f.d.HandleMessage(t.Context(), f.guildMessage("10", "200", "/roll"))
	// Configured and stored bot admins bypass the policy.
	_ = f.d.HandleMessage(t.Context(), f.guildMessage("99", "201", "/greet: root"))
	f.access.admins["11"] = true
	_ = f.d.HandleMessage(t.Context(), f.guildMessage("11", "201", "/greet: bob"))
	// DMs have no channel policy.
	_ = f.d.HandleMessage(t.Context(), f.dmMessage("10", "/greet: dm"))

	want := "roll,Guild:root,Guild:bob,DM:dm"
	if got := strings.Join(calls, ","); got != want {
		t.Fatalf("calls = %s, want %s", got, want)
	}
}

func TestEveryMessageGetsItsOwnContext(t *testing.T) {
	f := newFixture(t)
	var contexts []*commands.Context
	f.register("ctx", &commands.Command{
		Summary: "Captures the context",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			contexts = append(contexts, c)
			return nil
		}),
	}, nil)

	_ = f.d.HandleMessage(t.Context(), f.dmMessage("10", "/ctx"))
	_ = f.d.HandleMessage(t.Context(), f.dmMessage("10", "/ctx"))
	if len(contexts) != 2 || contexts[0] == contexts[1] {
		t.Fatalf("expected two distinct contexts, got %v", contexts)
	}
	if contexts[0].Command.Identifier() != "ctx" || contexts[0].Result != commands.PerfectMatch {
		t.Fatalf("context not populated: %+v", contexts[0])
	}
}

func TestStartSealsRegistry(t *testing.T) {
	f := newFixture(t)
	f.d.Start()
	if !f.registry.Sealed() {
		t.Fatal("Start should seal the registry")
	}
	err := f.registry.Register("late", &commands.Command{
		Summary:  "Too late",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error { return nil }),
	}, nil)
	if err == nil {
		t.Fatal("registration after Start should fail")
	}
}
