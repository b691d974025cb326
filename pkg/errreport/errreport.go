// Package errreport logs failures from the command loops and mirrors them
// into a configured report channel.
package errreport

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"botcore/pkg/logger"
	"botcore/pkg/platform"
)

// Embed limits of the report channel.
const (
	maxTitle       = 256
	maxDescription = 2048
)

// ColorReport is the embed color of posted reports.
const ColorReport = 0xFF0000

// Reporter receives failures that escaped a handler boundary.
type Reporter interface {
	Report(ctx context.Context, err error, source, detail string)
}

// PanicError wraps a recovered panic value with the goroutine stack.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recovered turns a recover() value into an error. It returns nil for nil.
func Recovered(v any) error {
	if v == nil {
		return nil
	}
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Handler logs every report and, when a channel is configured, posts it as
// an embed mentioning the report role.
type Handler struct {
	log       *logger.Logger
	messenger platform.Messenger
	channelID string
	roleID    string
}

// New creates a report handler. messenger may be nil for log-only reporting.
func New(log *logger.Logger, messenger platform.Messenger, channelID, roleID string) *Handler {
	return &Handler{
		log:       log,
		messenger: messenger,
		channelID: channelID,
		roleID:    roleID,
	}
}

// Report implements Reporter.
func (h *Handler) Report(ctx context.Context, err error, source, detail string) {
	if err == nil {
		return
	}

	fields := []zap.Field{zap.String("source", source), zap.Error(err)}
	if detail != "" {
		fields = append(fields, zap.String("context", detail))
	}
	var perr *PanicError
	if errors.As(err, &perr) {
		fields = append(fields, zap.ByteString("stack", perr.Stack))
	}
	h.log.Error("Exception reported", fields...)

	if h.messenger == nil || h.channelID == "" {
		return
	}
	if sendErr := h.messenger.Send(ctx, h.channelID, platform.Reply{Embed: h.embed(err, source, detail)}); sendErr != nil {
		h.log.Error("Failed to send exception message", zap.Error(sendErr))
	}
}

func (h *Handler) embed(err error, source, detail string) *platform.Embed {
	title := fmt.Sprintf("Exception reported from `%s`", source)
	if detail != "" {
		title += fmt.Sprintf(" with context `%s`", detail)
	}
	if h.roleID != "" {
		title = fmt.Sprintf("<@&%s> %s", h.roleID, title)
	}

	body := err.Error()
	var perr *PanicError
	if errors.As(err, &perr) {
		body += "\n" + string(perr.Stack)
	}

	return &platform.Embed{
		Title:       truncate(title, maxTitle),
		Description: "```\n" + truncate(body, maxDescription-8) + "\n```",
		Color:       ColorReport,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

var _ Reporter = (*Handler)(nil)
