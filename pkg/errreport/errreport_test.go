package errreport

import (
	"errors"
	"strings"
	"testing"

	"botcore/pkg/logger"
	"botcore/pkg/platform"
	"botcore/pkg/platform/memory"
)

func TestReportPostsToChannel(t *testing.T) {
	p := memory.New(platform.User{ID: "1", Username: "botcore", Bot: true})
	h := New(logger.NewNop(), p, "500", "900")

	h.Report(t.Context(), errors.New("boom"), "scheduler", "reminder")

	sent := p.Sent()
	if len(sent) != 1 || sent[0].ChannelID != "500" {
		t.Fatalf("expected one report in channel 500, got %+v", sent)
	}
	embed := sent[0].Reply.Embed
	if embed == nil {
		t.Fatalf("expected an embed")
	}
	if want := "<@&900> Exception reported from `scheduler` with context `reminder`"; embed.Title != want {
		t.Fatalf("expected title %q, got %q", want, embed.Title)
	}
	if !strings.Contains(embed.Description, "boom") {
		t.Fatalf("expected description to contain the error, got %q", embed.Description)
	}
}

func TestReportWithoutChannelOnlyLogs(t *testing.T) {
	p := memory.New(platform.User{ID: "1"})
	New(logger.NewNop(), p, "", "").Report(t.Context(), errors.New("boom"), "workqueue", "")
	New(logger.NewNop(), nil, "500", "").Report(t.Context(), errors.New("boom"), "workqueue", "")

	if len(p.Sent()) != 0 {
		t.Fatalf("expected nothing posted")
	}
}

func TestRecoveredCarriesStack(t *testing.T) {
	if Recovered(nil) != nil {
		t.Fatalf("expected nil for nil recover value")
	}

	var err error
	func() {
		defer func() { err = Recovered(recover()) }()
		panic("kaboom")
	}()

	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if perr.Value != "kaboom" || len(perr.Stack) == 0 {
		t.Fatalf("unexpected panic error %+v", perr)
	}

	p := memory.New(platform.User{ID: "1"})
	New(logger.NewNop(), p, "500", "").Report(t.Context(), err, "dispatch", "")
	desc := p.Sent()[0].Reply.Embed.Description
	if !strings.HasPrefix(desc, "```\npanic: kaboom") {
		t.Fatalf("unexpected description %q", desc)
	}
	if len([]rune(desc)) > maxDescription {
		t.Fatalf("description exceeds embed limit: %d", len([]rune(desc)))
	}
}
