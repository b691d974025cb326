package builtin

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
)

type userInfo struct {
	user   platform.User
	member *platform.Member
}

func (s *Set) userInfoCommand() *commands.Command {
	return &commands.Command{
		Summary: "Shows information about a user",
		Arguments: []commands.Argument{
			{Name: "User", Help: "Mention, id or name of the user; defaults to you", Optional: true, Type: reflect.TypeFor[platform.User]()},
		},
		Async: true,
		Behavior: &commands.Handler[userInfo]{
			ParseDM: func(ctx context.Context, c *commands.Context) (userInfo, error) {
				user, err := commands.ParseOptional(ctx, c, 0, c.Author)
				return userInfo{user: user}, err
			},
			ParseGuild: func(ctx context.Context, c *commands.Context) (userInfo, error) {
				member, err := commands.ParseOptional(ctx, c, 0, *c.Member)
				return userInfo{user: member.User, member: &member}, err
			},
			ExecDM: func(ctx context.Context, c *commands.Context, info userInfo) error {
				return c.ReplyEmbed(ctx, userEmbed(info.user))
			},
			ExecGuild: func(ctx context.Context, c *commands.Context, info userInfo) error {
				embed := userEmbed(info.user)
				embed.Fields = append(embed.Fields,
					platform.EmbedField{Name: "Nickname", Value: orNone(info.member.Nickname), Inline: true},
					platform.EmbedField{Name: "Owner", Value: strconv.FormatBool(info.user.ID == c.Guild.OwnerID), Inline: true},
					platform.EmbedField{Name: "Roles", Value: roleMentions(info.member.RoleIDs)},
				)
				embed.Footer = "Guild " + c.Guild.Name
				return c.ReplyEmbed(ctx, embed)
			},
		},
	}
}

func userEmbed(u platform.User) platform.Embed {
	name := u.Username
	if u.Discriminator != "" && u.Discriminator != "0" {
		name += "#" + u.Discriminator
	}
	return platform.Embed{
		Title: "User Information",
		Color: commands.ColorDefault,
		Fields: []platform.EmbedField{
			{Name: "User", Value: u.Mention(), Inline: true},
			{Name: "Name", Value: orNone(name), Inline: true},
			{Name: "ID", Value: u.ID, Inline: true},
			{Name: "Bot", Value: strconv.FormatBool(u.Bot), Inline: true},
		},
	}
}

func roleMentions(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = platform.Role{ID: id}.Mention()
	}
	return strings.Join(mentions, " ")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
