package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "botcore.log")

	log, err := New(&Config{
		Level:      LevelDebug,
		OutputPath: path,
		MaxSize:    1,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	log.Named("dispatch").Info("Command dispatched", zap.String("command", "help"))
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	for _, want := range []string{`"msg":"Command dispatched"`, `"command":"help"`, `"logger":"dispatch"`, `"time":`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected log file to contain %s, got:\n%s", want, content)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "verbose", Quiet: true}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[Level]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"fatal":  zapcore.FatalLevel,
	} {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("dpanic"); err == nil {
		t.Fatalf("expected dpanic to be rejected")
	}
}

func TestSetLevelIsSharedWithChildren(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botcore.log")
	cfg := &Config{Level: LevelError, OutputPath: path, Quiet: true}
	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	child := log.Named("scheduler").WithFields(zap.String("guild_id", "42"))
	if child.Config() != cfg {
		t.Fatalf("expected child logger to share config")
	}

	child.Info("dropped")
	if err := log.SetLevel(LevelDebug); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	if child.Level() != zapcore.DebugLevel {
		t.Fatalf("expected child at debug, got %v", child.Level())
	}
	child.Debug("kept")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Fatalf("unexpected log content:\n%s", data)
	}

	if err := log.SetLevel("loud"); err == nil {
		t.Fatalf("expected SetLevel to reject an unknown level")
	}
}
