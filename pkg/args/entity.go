package args

import (
	"context"
	"strconv"
	"strings"

	"botcore/pkg/platform"
)

// Self-reference keywords.
const (
	KeywordSelf = "self"
	KeywordThis = "this"
)

// Strategies toggles the steps of entity resolution. Steps run in field order.
type Strategies struct {
	Self    bool
	Mention bool
	ID      bool
	Name    bool
}

// AllStrategies enables every resolution step.
var AllStrategies = Strategies{Self: true, Mention: true, ID: true, Name: true}

// IsID reports whether token is a raw numeric id.
func IsID(token string) bool {
	_, err := strconv.ParseUint(token, 10, 64)
	return err == nil
}

// UserMention extracts the id from <@id> or <@!id>.
func UserMention(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := strings.TrimPrefix(token[2:len(token)-1], "!")
	return id, IsID(id)
}

// RoleMention extracts the id from <@&id>.
func RoleMention(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@&") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := token[3 : len(token)-1]
	return id, IsID(id)
}

// ChannelMention extracts the id from <#id>.
func ChannelMention(token string) (string, bool) {
	if !strings.HasPrefix(token, "<#") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := token[2 : len(token)-1]
	return id, IsID(id)
}

// ResolveUser resolves a user. Name matching needs guild scope.
func ResolveUser(ctx context.Context, s Scope, token string, st Strategies) (platform.User, bool) {
	dir := s.Directory()

	if st.Self && token == KeywordSelf {
		u, err := dir.User(ctx, s.AuthorID())
		return u, err == nil
	}
	if st.Mention {
		if id, ok := UserMention(token); ok {
			u, err := dir.User(ctx, id)
			return u, err == nil
		}
	}
	if st.ID && IsID(token) {
		if u, err := dir.User(ctx, token); err == nil {
			return u, true
		}
	}
	if st.Name && s.GuildID() != "" {
		if m, ok := memberByName(ctx, s, token); ok {
			return m.User, true
		}
	}
	return platform.User{}, false
}

// ResolveMember resolves a member of the scope's guild.
func ResolveMember(ctx context.Context, s Scope, token string, st Strategies) (platform.Member, bool) {
	guildID := s.GuildID()
	if guildID == "" {
		return platform.Member{}, false
	}
	dir := s.Directory()

	if st.Self && token == KeywordSelf {
		m, err := dir.Member(ctx, guildID, s.AuthorID())
		return m, err == nil
	}
	if st.Mention {
		if id, ok := UserMention(token); ok {
			m, err := dir.Member(ctx, guildID, id)
			return m, err == nil
		}
	}
	if st.ID && IsID(token) {
		if m, err := dir.Member(ctx, guildID, token); err == nil {
			return m, true
		}
	}
	if st.Name {
		return memberByName(ctx, s, token)
	}
	return platform.Member{}, false
}

func memberByName(ctx context.Context, s Scope, token string) (platform.Member, bool) {
	members, err := s.Directory().Members(ctx, s.GuildID())
	if err != nil {
		return platform.Member{}, false
	}
	for _, m := range members {
		if m.User.Username == token || m.Nickname == token {
			return m, true
		}
		if m.User.Discriminator != "" && m.User.Username+"#"+m.User.Discriminator == token {
			return m, true
		}
	}
	return platform.Member{}, false
}

// ResolveRole resolves a role of the scope's guild. Roles have no self keyword.
func ResolveRole(ctx context.Context, s Scope, token string, st Strategies) (platform.Role, bool) {
	guildID := s.GuildID()
	if guildID == "" {
		return platform.Role{}, false
	}
	roles, err := s.Directory().Roles(ctx, guildID)
	if err != nil {
		return platform.Role{}, false
	}

	if st.Mention {
		if id, ok := RoleMention(token); ok {
			return platform.FindRole(roles, id)
		}
	}
	if st.ID && IsID(token) {
		if r, ok := platform.FindRole(roles, token); ok {
			return r, true
		}
	}
	if st.Name {
		for _, r := range roles {
			if r.Name == token {
				return r, true
			}
		}
	}
	return platform.Role{}, false
}

// ResolveChannel resolves a text channel of the scope's guild.
func ResolveChannel(ctx context.Context, s Scope, token string, st Strategies) (platform.Channel, bool) {
	guildID := s.GuildID()
	if guildID == "" {
		return platform.Channel{}, false
	}
	dir := s.Directory()

	byID := func(id string) (platform.Channel, bool) {
		c, err := dir.Channel(ctx, id)
		if err != nil || c.GuildID != guildID || c.Kind != platform.ChannelText {
			return platform.Channel{}, false
		}
		return c, true
	}

	if st.Self && token == KeywordThis {
		return byID(s.ChannelID())
	}
	if st.Mention {
		if id, ok := ChannelMention(token); ok {
			return byID(id)
		}
	}
	if st.ID && IsID(token) {
		if c, ok := byID(token); ok {
			return c, true
		}
	}
	if st.Name {
		channels, err := dir.Channels(ctx, guildID)
		if err != nil {
			return platform.Channel{}, false
		}
		name := strings.TrimPrefix(token, "#")
		for _, c := range channels {
			if c.Kind == platform.ChannelText && c.Name == name {
				return c, true
			}
		}
	}
	return platform.Channel{}, false
}

// ResolveGuild resolves a guild the bot is a member of.
func ResolveGuild(ctx context.Context, s Scope, token string, st Strategies) (platform.Guild, bool) {
	dir := s.Directory()

	if st.Self && token == KeywordThis {
		if s.GuildID() == "" {
			return platform.Guild{}, false
		}
		g, err := dir.Guild(ctx, s.GuildID())
		return g, err == nil
	}
	if st.ID && IsID(token) {
		if g, err := dir.Guild(ctx, token); err == nil {
			return g, true
		}
	}
	if st.Name {
		guilds, err := dir.Guilds(ctx)
		if err != nil {
			return platform.Guild{}, false
		}
		for _, g := range guilds {
			if g.Name == token {
				return g, true
			}
		}
	}
	return platform.Guild{}, false
}
