package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
)

type guildVarAction struct {
	mode  string
	name  string
	value string
}

func (s *Set) guildVarCommand() *commands.Command {
	return &commands.Command{
		Summary: "View, set and delete guild config variables",
		Remarks: "Values may contain commas. Variables are read by preconditions such as role requirements.",
		Arguments: []commands.Argument{
			{Name: "Action", Help: "One of `list`, `get`, `set` or `delete`"},
			{Name: "Name", Help: "Name of the guild variable", Optional: true},
			{Name: "Value", Help: "Value to assign", Optional: true, Multiple: true},
		},
		ExecutePreconditions: []commands.Precondition{commands.IsOwnerOrAdmin()},
		ViewPreconditions:    []commands.Precondition{commands.IsOwnerOrAdmin()},
		Behavior: &commands.Handler[guildVarAction]{
			ParseGuild: s.parseGuildVar,
			ExecGuild:  s.execGuildVar,
		},
	}
}

func (s *Set) parseGuildVar(ctx context.Context, c *commands.Context) (guildVarAction, error) {
	var a guildVarAction
	action, _ := c.Arg(0)
	a.mode = strings.ToLower(action)

	switch a.mode {
	case "list":
		return a, nil
	case "get", "delete", "set":
	default:
		return a, commands.Invalid("Action", "Must be one of `list`, `get`, `set` or `delete`!")
	}

	name, ok := c.Arg(1)
	if !ok || name == "" {
		return a, commands.Invalid("Name", "Argument missing!")
	}
	a.name = name

	if a.mode == "set" {
		a.value = commands.RemoveArgumentsFront(2, c.Text.ArgumentSection)
		if a.value == "" {
			return a, commands.Invalid("Value", "Cannot assign an empty value!")
		}
		return a, nil
	}

	_, exists, err := s.store.GuildVar(ctx, c.Guild.ID, a.name)
	if err != nil {
		return a, err
	}
	if !exists {
		return a, commands.Invalid("Name", fmt.Sprintf("Couldn't locate a config variable named `%s`!", a.name))
	}
	return a, nil
}

func (s *Set) execGuildVar(ctx context.Context, c *commands.Context, a guildVarAction) error {
	guildID := c.Guild.ID

	switch a.mode {
	case "list":
		vars, err := s.store.GuildVars(ctx, guildID)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)

		embed := platform.Embed{
			Title: fmt.Sprintf("Config Variables for guild %s - %d", guildID, len(names)),
			Color: commands.ColorDefault,
		}
		if len(names) == 0 {
			embed.Description = "None"
		}
		for _, name := range names {
			embed.Fields = append(embed.Fields, platform.EmbedField{Name: name, Value: "`" + vars[name] + "`"})
		}
		return c.ReplyEmbed(ctx, embed)

	case "get":
		value, _, err := s.store.GuildVar(ctx, guildID, a.name)
		if err != nil {
			return err
		}
		return c.ReplyEmbed(ctx, platform.Embed{
			Title:       fmt.Sprintf("Config Variable `%s`", a.name),
			Description: codeBlock(value),
			Color:       commands.ColorDefault,
		})

	case "set":
		if err := s.store.SetGuildVar(ctx, guildID, a.name, a.value); err != nil {
			return err
		}
		return replyText(ctx, c, fmt.Sprintf("Set config variable `%s` to `%s`", a.name, a.value))

	default:
		if _, err := s.store.DeleteGuildVar(ctx, guildID, a.name); err != nil {
			return err
		}
		return replyText(ctx, c, fmt.Sprintf("Deleted config variable `%s`", a.name))
	}
}
