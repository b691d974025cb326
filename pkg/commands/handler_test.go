package commands

import (
	"context"
	"errors"
	"testing"
)

func TestRoute(t *testing.T) {
	cases := []struct {
		method    HandledContexts
		kind      ContextKind
		wantGuild bool
		wantErr   error
	}{
		{Both, KindDM, false, nil},
		{Both, KindGuild, true, nil},
		{DMOnly, KindDM, false, nil},
		{DMOnly, KindGuild, false, nil},
		{GuildOnly, KindGuild, true, nil},
		{GuildOnly, KindDM, false, ErrUnroutable},
		{None, KindGuild, false, ErrUnsupported},
	}
	for _, tc := range cases {
		guild, err := Route(tc.method, tc.kind)
		if !errors.Is(err, tc.wantErr) || guild != tc.wantGuild {
			t.Errorf("Route(%s, %s) = %v, %v; want %v, %v", tc.method, tc.kind, guild, err, tc.wantGuild, tc.wantErr)
		}
	}
}

func TestHandlerBindsParsedArguments(t *testing.T) {
	p := newGuildFixture()
	var got []string
	h := &Handler[string]{
		ParseDM: func(ctx context.Context, c *Context) (string, error) { return "dm:" + c.Text.Arguments[0], nil },
		ParseGuild: func(ctx context.Context, c *Context) (string, error) {
			return "guild:" + c.Text.Arguments[0], nil
		},
		ExecDM: func(ctx context.Context, c *Context, a string) error {
			got = append(got, "execdm "+a)
			return nil
		},
	}
	if h.ParseMethod() != Both || h.ExecMethod() != DMOnly {
		t.Fatalf("unexpected methods %s/%s", h.ParseMethod(), h.ExecMethod())
	}

	c := guildContext(p, "10")
	c.Text = Text{Identifier: "echo", Arguments: []string{"x"}}

	inv, err := h.Parse(t.Context(), c, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := inv(t.Context(), c, false); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(got) != 1 || got[0] != "execdm guild:x" {
		t.Fatalf("unexpected executions %q", got)
	}
	if err := inv(t.Context(), c, true); !errors.Is(err, ErrUnroutable) {
		t.Fatalf("expected missing guild exec to be unroutable, got %v", err)
	}
}

func TestHandlerWithoutParseBindsZeroValue(t *testing.T) {
	ran := false
	h := Exec(func(ctx context.Context, c *Context) error {
		ran = true
		return nil
	})
	if h.ParseMethod() != None {
		t.Fatalf("expected no parse step")
	}
	inv, err := h.Parse(t.Context(), &Context{}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := inv(t.Context(), &Context{}, false); err != nil || !ran {
		t.Fatalf("expected exec to run, err=%v", err)
	}
}

func TestParseArgReportsArgumentName(t *testing.T) {
	p := newGuildFixture()
	r := NewRegistry(nil)
	cmd := &Command{
		Summary:   "Adds",
		Arguments: []Argument{{Name: "Left"}, {Name: "Right"}},
		Behavior:  Exec(func(ctx context.Context, c *Context) error { return nil }),
	}
	if err := r.Register("add", cmd, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	c := guildContext(p, "10")
	c.Command = cmd
	c.Text = Text{Identifier: "add", Arguments: []string{"4", "four"}}

	left, err := ParseArg[int64](t.Context(), c, 0)
	if err != nil || left != 4 {
		t.Fatalf("expected 4, got %d %v", left, err)
	}
	_, err = ParseArg[int64](t.Context(), c, 1)
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Argument != "Right" {
		t.Fatalf("expected ParseError for Right, got %v", err)
	}
	if got, _ := ParseOptional[int64](t.Context(), c, 5, 9); got != 9 {
		t.Fatalf("expected default 9, got %d", got)
	}
}
