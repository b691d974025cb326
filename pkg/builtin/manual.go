package builtin

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
	"botcore/pkg/state"
)

const (
	manualListed  = "This list only shows commands where all preconditions have been met!"
	manualNothing = "No command's precondition has been met!"
	triangleRight = "▶"
)

var syntaxHelp = platform.EmbedField{
	Name:  "Syntax Help",
	Value: "`key` = command identifier\n`<key>` = required argument\n`(key)` = optional argument\n`[key]` = multiple arguments possible",
}

// manualTarget is what man was asked about. Both nil means the full list.
type manualTarget struct {
	command    *commands.Command
	collection *commands.Collection
}

func (s *Set) helpCommand() *commands.Command {
	return &commands.Command{
		Summary: "Lists all commands and command collections available to you",
		Behavior: commands.Exec(func(ctx context.Context, c *commands.Context) error {
			return c.ReplyEmbed(ctx, s.helpList(ctx, c))
		}),
	}
}

func (s *Set) manualCommand() *commands.Command {
	return &commands.Command{
		Summary: "Provides help and tips for command usage",
		Arguments: []commands.Argument{
			{Name: "Command Identifier", Help: "Command identifier or collection name you want to access the help for", Optional: true},
		},
		Behavior: &commands.Handler[manualTarget]{
			ParseDM: func(ctx context.Context, c *commands.Context) (manualTarget, error) {
				var target manualTarget
				name, ok := c.Arg(0)
				if !ok {
					return target, nil
				}
				if cmd, found := s.registry.Lookup(name); found {
					target.command = cmd
				} else if collection, found := s.registry.Collection(name); found {
					target.collection = collection
				}
				return target, nil
			},
			ExecDM: func(ctx context.Context, c *commands.Context, target manualTarget) error {
				switch {
				case target.command != nil:
					return c.ReplyEmbed(ctx, commandHelp(ctx, c, target.command))
				case target.collection != nil:
					return c.ReplyEmbed(ctx, s.collectionHelp(ctx, c, target.collection))
				default:
					return c.ReplyEmbed(ctx, s.helpList(ctx, c))
				}
			},
		},
	}
}

// policyFor returns the channel policy applying to c. Bot admins and DMs
// are unrestricted.
func (s *Set) policyFor(ctx context.Context, c *commands.Context) state.ChannelPolicy {
	if c.Kind() != commands.KindGuild || c.IsBotAdmin || s.store == nil {
		return state.AllowAll
	}
	policy, err := s.store.ChannelPolicy(ctx, c.Guild.ID, c.Channel.ID)
	if err != nil {
		s.log.Warn("Failed to read channel policy", zap.Error(err))
		return state.AllowAll
	}
	return policy
}

func viewable(ctx context.Context, c *commands.Context, policy state.ChannelPolicy, cmd *commands.Command) bool {
	if !policy.AllowCommands || !policy.AllowsCollection(cmd.Collection().Name) {
		return false
	}
	return len(commands.CanView(ctx, cmd, c)) == 0
}

func commandField(c *commands.Context, cmd *commands.Command) platform.EmbedField {
	return platform.EmbedField{Name: c.Parser.Syntax(cmd.Identifier()), Value: cmd.Summary, Inline: true}
}

func (s *Set) helpList(ctx context.Context, c *commands.Context) platform.Embed {
	policy := s.policyFor(ctx, c)
	var fields []platform.EmbedField

	for _, collection := range s.registry.Collections() {
		if !policy.AllowsCollection(collection.Name) {
			continue
		}
		available := 0
		for _, cmd := range collection.Commands() {
			if viewable(ctx, c, policy, cmd) {
				available++
			}
		}
		if available == 0 {
			continue
		}
		description := ""
		if collection.Description != "" {
			description = " " + collection.Description + "."
		}
		fields = append(fields, platform.EmbedField{
			Name: fmt.Sprintf("Collection \"%s\"", collection.Name),
			Value: fmt.Sprintf("%d commands.%s Use `%s` to see a summary of commands in this command family!",
				available, description, c.Parser.Invocation("man", collection.Name)),
			Inline: true,
		})
	}

	for _, cmd := range s.registry.Base().Commands() {
		if viewable(ctx, c, policy, cmd) {
			fields = append(fields, commandField(c, cmd))
		}
	}

	return listEmbed(c, "List of all Commands", fields)
}

func (s *Set) collectionHelp(ctx context.Context, c *commands.Context, collection *commands.Collection) platform.Embed {
	policy := s.policyFor(ctx, c)
	var fields []platform.EmbedField
	for _, cmd := range collection.Commands() {
		if viewable(ctx, c, policy, cmd) {
			fields = append(fields, commandField(c, cmd))
		}
	}
	return listEmbed(c, fmt.Sprintf("Command Collection \"%s\"", collection.Name), fields)
}

func listEmbed(c *commands.Context, title string, fields []platform.EmbedField) platform.Embed {
	embed := platform.Embed{
		Title:       title,
		Description: manualListed,
		Color:       commands.ColorDefault,
		Fields:      fields,
		Footer:      "Context: " + contextName(c),
	}
	if len(fields) == 0 {
		embed.Description = manualNothing
		embed.Color = commands.ColorError
	}
	return embed
}

func commandHelp(ctx context.Context, c *commands.Context, cmd *commands.Command) platform.Embed {
	syntax := c.Parser.Syntax(cmd.Identifier())
	fullSyntax := c.Parser.Syntax(cmd.Identifier(), cmd.Arguments...)

	if failures := commands.CanView(ctx, cmd, c); len(failures) > 0 {
		return platform.Embed{
			Title:       fmt.Sprintf("Help For `%s`", syntax),
			Description: "**Failed view precondition check!**\n" + strings.Join(failures, "\n"),
			Color:       commands.ColorError,
		}
	}

	embed := platform.Embed{
		Title:       fmt.Sprintf("Help For `%s`", syntax),
		Description: fmt.Sprintf("Collection: `%s`\n%s", cmd.Collection(), cmd.Summary),
		Color:       commands.ColorDefault,
	}
	if cmd.Link != "" {
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "Documentation",
			Value: fmt.Sprintf("[Online Documentation for `%s`](%s)", fullSyntax, cmd.Link),
		})
	}
	if cmd.Remarks != "" {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Remarks", Value: cmd.Remarks})
	}

	if len(cmd.Arguments) > 0 {
		info := make([]string, len(cmd.Arguments))
		for i, a := range cmd.Arguments {
			info[i] = fmt.Sprintf("**%s`%s`**\n%s", triangleRight, a, a.Help)
		}
		embed.Fields = append(embed.Fields,
			platform.EmbedField{Name: "Syntax", Value: codeBlock(fullSyntax) + "\n" + strings.Join(info, "\n\n")},
			syntaxHelp,
		)
	} else {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Syntax", Value: codeBlock(fullSyntax)})
	}

	location := "Guild or PM"
	if cmd.RequireGuildContext() {
		location = "Guild"
	}
	embed.Fields = append(embed.Fields, platform.EmbedField{
		Name: "Access Requirements",
		Value: fmt.Sprintf("\nRequired Execution Location `%s`\n\n**Execution Preconditions**\n%s\n\n**ViewPreconditions**\n%s",
			location, joinPreconditions(cmd.ExecutePreconditions), joinPreconditions(cmd.ViewPreconditions)),
	})
	embed.Footer = "Required Context: " + location
	return embed
}

func joinPreconditions(list []commands.Precondition) string {
	parts := make([]string, len(list))
	for i, p := range list {
		parts[i] = p.String()
	}
	return strings.Join(parts, "\n")
}
