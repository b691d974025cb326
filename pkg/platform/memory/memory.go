// Package memory implements an in-process platform used by the console and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"botcore/pkg/platform"
)

// Sent is a reply recorded by the platform.
type Sent struct {
	ChannelID string
	Reply     platform.Reply
}

// Reaction is a reaction recorded by the platform.
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// Platform is a thread-safe in-memory platform.
type Platform struct {
	mu sync.RWMutex

	self     platform.User
	users    map[string]platform.User
	guilds   map[string]platform.Guild
	channels map[string]platform.Channel
	members  map[string]map[string]platform.Member
	roles    map[string][]platform.Role

	sent      []Sent
	reactions []Reaction
	status    string
	typing    int
	released  int

	// OnSend, when set, is invoked for every reply after it is recorded.
	OnSend func(Sent)
	// OnReact is OnSend for reactions.
	OnReact func(Reaction)
}

// New creates an empty platform whose bot account is self.
func New(self platform.User) *Platform {
	p := &Platform{
		self:     self,
		users:    make(map[string]platform.User),
		guilds:   make(map[string]platform.Guild),
		channels: make(map[string]platform.Channel),
		members:  make(map[string]map[string]platform.Member),
		roles:    make(map[string][]platform.Role),
	}
	p.users[self.ID] = self
	return p
}

// AddUser registers a user account.
func (p *Platform) AddUser(u platform.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

// AddGuild registers a guild.
func (p *Platform) AddGuild(g platform.Guild) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[g.ID] = g
}

// AddChannel registers a channel.
func (p *Platform) AddChannel(c platform.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[c.ID] = c
}

// AddRole registers a guild role.
func (p *Platform) AddRole(r platform.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[r.GuildID] = append(p.roles[r.GuildID], r)
}

// AddMember registers a guild member and its user.
func (p *Platform) AddMember(m platform.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[m.User.ID] = m.User
	if p.members[m.GuildID] == nil {
		p.members[m.GuildID] = make(map[string]platform.Member)
	}
	p.members[m.GuildID][m.User.ID] = m
}

// Self implements platform.Platform.
func (p *Platform) Self() platform.User {
	return p.self
}

// User implements platform.Directory.
func (p *Platform) User(ctx context.Context, userID string) (platform.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[userID]; ok {
		return u, nil
	}
	return platform.User{}, fmt.Errorf("user %s: %w", userID, platform.ErrNotFound)
}

// Guild implements platform.Directory.
func (p *Platform) Guild(ctx context.Context, guildID string) (platform.Guild, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if g, ok := p.guilds[guildID]; ok {
		return g, nil
	}
	return platform.Guild{}, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
}

// Guilds implements platform.Directory.
func (p *Platform) Guilds(ctx context.Context) ([]platform.Guild, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]platform.Guild, 0, len(p.guilds))
	for _, g := range p.guilds {
		out = append(out, g)
	}
	return out, nil
}

// Channel implements platform.Directory.
func (p *Platform) Channel(ctx context.Context, channelID string) (platform.Channel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.channels[channelID]; ok {
		return c, nil
	}
	return platform.Channel{}, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
}

// Channels implements platform.Directory.
func (p *Platform) Channels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []platform.Channel
	for _, c := range p.channels {
		if c.GuildID == guildID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Member implements platform.Directory.
func (p *Platform) Member(ctx context.Context, guildID, userID string) (platform.Member, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.members[guildID][userID]; ok {
		return m, nil
	}
	return platform.Member{}, fmt.Errorf("member %s in guild %s: %w", userID, guildID, platform.ErrNotFound)
}

// Members implements platform.Directory.
func (p *Platform) Members(ctx context.Context, guildID string) ([]platform.Member, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]platform.Member, 0, len(p.members[guildID]))
	for _, m := range p.members[guildID] {
		out = append(out, m)
	}
	return out, nil
}

// Roles implements platform.Directory.
func (p *Platform) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]platform.Role(nil), p.roles[guildID]...), nil
}

// Send implements platform.Messenger.
func (p *Platform) Send(ctx context.Context, channelID string, reply platform.Reply) error {
	s := Sent{ChannelID: channelID, Reply: reply}
	p.mu.Lock()
	p.sent = append(p.sent, s)
	hook := p.OnSend
	p.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return nil
}

// React implements platform.Messenger.
func (p *Platform) React(ctx context.Context, channelID, messageID, emoji string) error {
	r := Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji}
	p.mu.Lock()
	p.reactions = append(p.reactions, r)
	hook := p.OnReact
	p.mu.Unlock()

	if hook != nil {
		hook(r)
	}
	return nil
}

// Typing implements platform.Messenger.
func (p *Platform) Typing(ctx context.Context, channelID string) (func(), error) {
	p.mu.Lock()
	p.typing++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.released++
			p.mu.Unlock()
		})
	}, nil
}

// SetWatching implements platform.Presence.
func (p *Platform) SetWatching(ctx context.Context, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	return nil
}

// Sent returns a copy of the recorded replies.
func (p *Platform) Sent() []Sent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Sent(nil), p.sent...)
}

// Reactions returns a copy of the recorded reactions.
func (p *Platform) Reactions() []Reaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Reaction(nil), p.reactions...)
}

// Status returns the last presence status.
func (p *Platform) Status() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// TypingCounts returns how many indicators were started and released.
func (p *Platform) TypingCounts() (started, released int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.typing, p.released
}

// Reset clears recorded replies and reactions.
func (p *Platform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
	p.reactions = nil
}

var _ platform.Platform = (*Platform)(nil)
