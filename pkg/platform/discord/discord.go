// Package discord connects the command engine to Discord through discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
)

// typingInterval re-sends the typing indicator before Discord expires it.
const typingInterval = 8 * time.Second

// memberPage is the largest page the member list endpoint returns.
const memberPage = 1000

// Handler receives inbound messages.
type Handler func(ctx context.Context, msg platform.Message)

// Client implements platform.Platform on a discordgo session.
type Client struct {
	log     *logger.Logger
	config  config.DiscordConfig
	session *discordgo.Session
	limiter *rate.Limiter

	mu      sync.RWMutex
	handler Handler
	self    platform.User
	running bool
}

var _ platform.Platform = (*Client)(nil)

// New creates a Discord client. Start opens the gateway connection.
func New(log *logger.Logger, cfg config.DiscordConfig) (*Client, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	return &Client{
		log:     log,
		config:  cfg,
		session: session,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// SetHandler sets the inbound message handler.
func (c *Client) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start opens the gateway connection.
func (c *Client) Start(ctx context.Context) error {
	c.log.Info("Starting Discord client")

	c.session.AddHandler(c.onMessage)
	c.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}

	c.mu.Lock()
	c.running = true
	if u := c.session.State.User; u != nil {
		c.self = toUser(u)
	}
	self := c.self
	c.mu.Unlock()

	c.log.Info("Discord bot connected",
		zap.String("username", self.Username),
		zap.String("user_id", self.ID))
	return nil
}

// Stop closes the gateway connection.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()
	if !running {
		return nil
	}

	c.log.Info("Stopping Discord client")
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}

// Self returns the bot account.
func (c *Client) Self() platform.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

func (c *Client) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	if !c.isAllowed(m.Author.ID) {
		c.log.Debug("Ignoring message from unlisted user", zap.String("user_id", m.Author.ID))
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	handler(context.Background(), toMessage(m.Message))
}

func (c *Client) isAllowed(userID string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range c.config.AllowFrom {
		if allowed == userID || allowed == "*" {
			return true
		}
	}
	return false
}

// Send implements platform.Messenger. Sends share one rate limiter.
func (c *Client) Send(ctx context.Context, channelID string, reply platform.Reply) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	data := &discordgo.MessageSend{Content: reply.Content}
	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{toEmbed(*reply.Embed)}
	}
	if _, err := c.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending discord message: %w", mapError(err))
	}

	c.log.Debug("Sent Discord message",
		zap.String("channel_id", channelID),
		zap.Int("length", len(reply.Content)))
	return nil
}

// React implements platform.Messenger.
func (c *Client) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := c.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("adding reaction: %w", mapError(err))
	}
	return nil
}

// Typing implements platform.Messenger. The indicator is refreshed until
// release is called.
func (c *Client) Typing(ctx context.Context, channelID string) (func(), error) {
	if err := c.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("starting typing: %w", mapError(err))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.session.ChannelTyping(channelID); err != nil {
					c.log.Debug("Failed to refresh typing", zap.String("channel_id", channelID), zap.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}

// SetWatching implements platform.Presence.
func (c *Client) SetWatching(ctx context.Context, status string) error {
	if err := c.session.UpdateWatchStatus(0, status); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return nil
}

// User implements platform.Directory.
func (c *Client) User(ctx context.Context, userID string) (platform.User, error) {
	u, err := c.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.User{}, mapError(err)
	}
	return toUser(u), nil
}

// Guild implements platform.Directory.
func (c *Client) Guild(ctx context.Context, guildID string) (platform.Guild, error) {
	g, err := c.session.State.Guild(guildID)
	if err != nil {
		g, err = c.session.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Guild{}, mapError(err)
		}
	}
	return toGuild(g), nil
}

// Guilds implements platform.Directory. Only guilds known to the gateway
// state are listed.
func (c *Client) Guilds(ctx context.Context) ([]platform.Guild, error) {
	c.session.State.RLock()
	defer c.session.State.RUnlock()

	out := make([]platform.Guild, 0, len(c.session.State.Guilds))
	for _, g := range c.session.State.Guilds {
		out = append(out, toGuild(g))
	}
	return out, nil
}

// Channel implements platform.Directory.
func (c *Client) Channel(ctx context.Context, channelID string) (platform.Channel, error) {
	ch, err := c.session.State.Channel(channelID)
	if err != nil {
		ch, err = c.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Channel{}, mapError(err)
		}
	}
	return toChannel(ch), nil
}

// Channels implements platform.Directory.
func (c *Client) Channels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	chs, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]platform.Channel, 0, len(chs))
	for _, ch := range chs {
		out = append(out, toChannel(ch))
	}
	return out, nil
}

// Member implements platform.Directory.
func (c *Client) Member(ctx context.Context, guildID, userID string) (platform.Member, error) {
	m, err := c.session.State.Member(guildID, userID)
	if err != nil {
		m, err = c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Member{}, mapError(err)
		}
	}
	return toMember(guildID, m), nil
}

// Members implements platform.Directory.
func (c *Client) Members(ctx context.Context, guildID string) ([]platform.Member, error) {
	var (
		out   []platform.Member
		after string
	)
	for {
		page, err := c.session.GuildMembers(guildID, after, memberPage, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		for _, m := range page {
			out = append(out, toMember(guildID, m))
		}
		if len(page) < memberPage || page[len(page)-1].User == nil {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// Roles implements platform.Directory.
func (c *Client) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRole(guildID, r))
	}
	return out, nil
}

// mapError turns Discord lookup misses into platform.ErrNotFound.
func mapError(err error) error {
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return platform.ErrNotFound
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
	}
	return err
}
