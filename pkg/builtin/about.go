package builtin

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
	"botcore/pkg/version"
)

func (s *Set) aboutCommand() *commands.Command {
	return &commands.Command{
		Summary: "Lists basic information about the bot",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			return c.ReplyEmbed(ctx, s.aboutEmbed(c))
		}),
	}
}

func (s *Set) aboutEmbed(c *commands.Context) platform.Embed {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	self := c.Platform.Self()
	return platform.Embed{
		Title:       self.Username,
		Description: "Text command engine " + version.GetFullVersion(),
		Color:       commands.ColorDefault,
		Fields: []platform.EmbedField{
			{Name: "Runtime", Value: version.Runtime(), Inline: true},
			{Name: "Uptime", Value: time.Since(s.started).Round(time.Second).String(), Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.2f MB", float64(mem.Alloc)/1024.0/1024.0), Inline: true},
			{Name: "Commands", Value: strconv.Itoa(len(s.registry.Commands())), Inline: true},
			{Name: "Collections", Value: strconv.Itoa(len(s.registry.Collections()) + 1), Inline: true},
			{Name: "Prefix", Value: "`" + c.Parser.Prefix() + "`", Inline: true},
		},
		Footer: version.Name + " command handler",
	}
}
