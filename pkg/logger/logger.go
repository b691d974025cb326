// Package logger builds the zap logger shared by every service: JSON or
// colored console output on stdout plus an optional rotating JSON file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a log level name as written in config files.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	// LevelFatal exits the process after logging.
	LevelFatal Level = "fatal"
)

// ParseLevel maps a level name to zap's level. Empty means info.
func ParseLevel(level Level) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	switch Level(name) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return zapcore.ParseLevel(name)
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Config describes the log sinks.
type Config struct {
	Level Level

	// OutputPath is the rotating log file. Empty disables the file sink.
	OutputPath string
	MaxSize    int // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool

	// Development switches stdout to colored console output.
	Development      bool
	EnableCaller     bool
	EnableStacktrace bool

	// Quiet drops the stdout sink.
	Quiet bool
}

// DefaultConfig logs info and above to ~/.botcore/logs/botcore.log and stdout.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Level:            LevelInfo,
		OutputPath:       filepath.Join(home, ".botcore", "logs", "botcore.log"),
		MaxSize:          100,
		MaxBackups:       3,
		MaxAge:           7,
		Compress:         true,
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// Logger is a zap logger whose level can be changed at runtime. Loggers
// derived with Named or WithFields share the level.
type Logger struct {
	*zap.Logger
	level  zap.AtomicLevel
	config *Config
}

// New builds a logger from cfg.
func New(cfg *Config) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var cores []zapcore.Core
	if !cfg.Quiet {
		cores = append(cores, zapcore.NewCore(stdoutEncoder(cfg.Development), zapcore.Lock(os.Stdout), level))
	}
	if cfg.OutputPath != "" {
		sink, err := rotatingFile(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level))
	}

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...), opts...),
		level:  level,
		config: cfg,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
		level:  zap.NewAtomicLevelAt(zapcore.FatalLevel),
		config: &Config{Level: LevelFatal, Quiet: true},
	}
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	return ec
}

func stdoutEncoder(development bool) zapcore.Encoder {
	ec := encoderConfig()
	if !development {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func rotatingFile(cfg *Config) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.OutputPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{Logger: z, level: l.level, config: l.config}
}

// Named returns a child logger for a component, e.g. "scheduler".
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.Logger.Named(name))
}

// WithFields returns a child logger that adds fields to every entry.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return l.derive(l.Logger.With(fields...))
}

// SetLevel changes the level of l and every logger derived from the same root.
func (l *Logger) SetLevel(level Level) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Level reports the current level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Config returns the configuration the logger was built with.
func (l *Logger) Config() *Config {
	return l.config
}
