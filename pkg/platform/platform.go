// Package platform defines what the command engine needs from a chat
// platform: inbound messages, replies, and entity lookup.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Directory lookups that have no match.
var ErrNotFound = errors.New("entity not found")

// User is a platform account.
type User struct {
	ID            string
	Username      string
	Discriminator string
	Bot           bool
}

// Mention renders the user mention syntax.
func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Member is a user's membership in a guild.
type Member struct {
	User     User
	GuildID  string
	Nickname string
	RoleIDs  []string
}

// DisplayName returns the nickname, falling back to the username.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.User.Username
}

// HasRole reports whether the member holds the role.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role.
type Role struct {
	ID            string
	GuildID       string
	Name          string
	Position      int
	Administrator bool
}

// Mention renders the role mention syntax.
func (r Role) Mention() string {
	return "<@&" + r.ID + ">"
}

// ChannelKind distinguishes guild text channels from direct messages.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelDM
	ChannelVoice
	ChannelOther
)

// Channel is a place messages are sent to.
type Channel struct {
	ID      string
	GuildID string
	Name    string
	Kind    ChannelKind
}

// Mention renders the channel mention syntax.
func (c Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// Guild is a server.
type Guild struct {
	ID      string
	Name    string
	OwnerID string
}

// Message is an inbound text message. GuildID is empty for direct messages.
type Message struct {
	ID        string
	Content   string
	Author    User
	ChannelID string
	GuildID   string
}

// IsDirect reports whether the message was sent outside a guild.
func (m Message) IsDirect() bool {
	return m.GuildID == ""
}

// EmbedField is a titled block inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message body.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// Reply is an outbound message.
type Reply struct {
	Content string
	Embed   *Embed
}

// Text builds a plain reply.
func Text(content string) Reply {
	return Reply{Content: content}
}

// Directory looks up platform entities.
type Directory interface {
	User(ctx context.Context, userID string) (User, error)
	Guild(ctx context.Context, guildID string) (Guild, error)
	Guilds(ctx context.Context) ([]Guild, error)
	Channel(ctx context.Context, channelID string) (Channel, error)
	Channels(ctx context.Context, guildID string) ([]Channel, error)
	Member(ctx context.Context, guildID, userID string) (Member, error)
	Members(ctx context.Context, guildID string) ([]Member, error)
	Roles(ctx context.Context, guildID string) ([]Role, error)
}

// Messenger sends replies and short-lived side effects.
type Messenger interface {
	Send(ctx context.Context, channelID string, reply Reply) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	// Typing starts a typing indicator; release stops it and must be called once.
	Typing(ctx context.Context, channelID string) (release func(), err error)
}

// Presence updates the bot's visible status.
type Presence interface {
	SetWatching(ctx context.Context, status string) error
}

// Platform bundles the collaborator capabilities of a connected client.
type Platform interface {
	Directory
	Messenger
	Presence
	// Self returns the bot's own account.
	Self() User
}

// FindRole returns the role with the given id from a guild's role list.
func FindRole(roles []Role, roleID string) (Role, bool) {
	for _, r := range roles {
		if r.ID == roleID {
			return r, true
		}
	}
	return Role{}, false
}
