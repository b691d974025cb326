package builtin

import (
	"botcore/pkg/commands"
	"botcore/pkg/platform"
)

func embedText(description string) platform.Embed {
	return platform.Embed{Description: description, Color: commands.ColorDefault}
}

func codeBlock(s string) string {
	return "```\n" + s + "\n```"
}

func contextName(c *commands.Context) string {
	if c.Kind() == commands.KindGuild {
		return "Guild"
	}
	return "PM"
}
