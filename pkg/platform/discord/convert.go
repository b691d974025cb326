package discord

import (
	"github.com/bwmarrin/discordgo"

	"botcore/pkg/platform"
)

func toUser(u *discordgo.User) platform.User {
	if u == nil {
		return platform.User{}
	}
	return platform.User{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Bot:           u.Bot,
	}
}

func toMessage(m *discordgo.Message) platform.Message {
	return platform.Message{
		ID:        m.ID,
		Content:   m.Content,
		Author:    toUser(m.Author),
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	}
}

func toGuild(g *discordgo.Guild) platform.Guild {
	return platform.Guild{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}
}

func toChannel(ch *discordgo.Channel) platform.Channel {
	return platform.Channel{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
		Kind:    channelKind(ch.Type),
	}
}

func channelKind(t discordgo.ChannelType) platform.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return platform.ChannelText
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return platform.ChannelDM
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return platform.ChannelVoice
	default:
		return platform.ChannelOther
	}
}

func toMember(guildID string, m *discordgo.Member) platform.Member {
	return platform.Member{
		User:     toUser(m.User),
		GuildID:  guildID,
		Nickname: m.Nick,
		RoleIDs:  append([]string(nil), m.Roles...),
	}
}

func toRole(guildID string, r *discordgo.Role) platform.Role {
	return platform.Role{
		ID:            r.ID,
		GuildID:       guildID,
		Name:          r.Name,
		Position:      r.Position,
		Administrator: r.Permissions&discordgo.PermissionAdministrator != 0,
	}
}

func toEmbed(e platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return out
}
