package builtin

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"botcore/pkg/args"
	"botcore/pkg/commands"
	"botcore/pkg/platform"
	"botcore/pkg/scheduler"
)

// ReasonDuration is reported for delays that cannot be parsed.
const ReasonDuration = "Could not parse to a duration, e.g. `90s`, `10m`, `1h30m` or `2d`!"

// Reminder delay bounds.
const (
	MinReminderDelay = time.Second
	MaxReminderDelay = 30 * 24 * time.Hour
)

func registerParsers(r *commands.Registry) error {
	return args.Register[time.Duration](r.Parsers(), parseDuration, nil, ReasonDuration)
}

// parseDuration accepts Go durations plus a whole number of days ("2d").
func parseDuration(_ context.Context, _ args.Scope, token string) (time.Duration, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if days, ok := strings.CutSuffix(token, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 || n > int(MaxReminderDelay/(24*time.Hour)) {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(token)
	if err != nil {
		return 0, false
	}
	return d, true
}

type reminder struct {
	delay   time.Duration
	message string
}

func (s *Set) remindCommand() *commands.Command {
	return &commands.Command{
		Summary: "Reminds you in this channel after a delay",
		Arguments: []commands.Argument{
			{Name: "Delay", Help: "How long to wait, e.g. `10m` or `1h30m`", Type: reflect.TypeFor[time.Duration]()},
			{Name: "Message", Help: "What to remind you of", Optional: true, Multiple: true},
		},
		Behavior: &commands.Handler[reminder]{
			ParseDM: func(ctx context.Context, c *commands.Context) (reminder, error) {
				delay, err := commands.ParseArg[time.Duration](ctx, c, 0)
				if err != nil {
					return reminder{}, err
				}
				if delay < MinReminderDelay || delay > MaxReminderDelay {
					return reminder{}, commands.Invalid("Delay", "Must be between 1s and 30 days!")
				}
				return reminder{
					delay:   delay,
					message: commands.RemoveArgumentsFront(1, c.Text.ArgumentSection),
				}, nil
			},
			ExecDM: s.execRemind,
		},
	}
}

func (s *Set) execRemind(ctx context.Context, c *commands.Context, r reminder) error {
	channelID := c.Channel.ID
	text := c.Author.Mention() + " Reminder!"
	if r.message != "" {
		text = c.Author.Mention() + " Reminder: " + r.message
	}
	messenger := c.Platform

	entry := scheduler.NewEntry("remind:"+c.Author.ID, time.Now().Add(r.delay), func(ctx context.Context) error {
		return messenger.Send(ctx, channelID, platform.Text(text))
	})
	if err := s.scheduler.Add(entry); err != nil {
		return fmt.Errorf("scheduling reminder: %w", err)
	}

	return replyText(ctx, c, fmt.Sprintf("I will remind you in %s", r.delay))
}
