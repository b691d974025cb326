package main

import (
	"bytes"
	"strings"
	"testing"

	"botcore/pkg/commands"
)

func TestPrintParse(t *testing.T) {
	var buf bytes.Buffer
	printParse(&buf, commands.NewParser("/"), `/remind: 10m, tea\, then cake`)

	want := strings.Join([]string{
		"Identifier: remind",
		"Arguments:  2",
		`  [0] "10m"`,
		`  [1] "tea, then cake"`,
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestPrintParseNotACommand(t *testing.T) {
	var buf bytes.Buffer
	printParse(&buf, commands.NewParser("!"), "/help")
	if !strings.HasPrefix(buf.String(), "Not a command") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestParseCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"parse", "--prefix", "!", "!man: remind"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("parse command failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Identifier: man") || !strings.Contains(buf.String(), `[0] "remind"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
