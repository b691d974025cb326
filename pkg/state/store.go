package state

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"botcore/pkg/commands"
)

// Document keys. Each guild keeps its variables in one document.
const (
	keyBotAdmins     = "bot:admins"
	keyCounterPrefix = "counter:"
	keyStampPrefix   = "stamp:"
)

func guildVarsKey(guildID string) string { return "guild:" + guildID + ":vars" }
func guildPolicyKey(guildID string) string { return "guild:" + guildID + ":policy" }
func channelPolicyKey(chanID string) string { return "channel:" + chanID + ":policy" }

// ChannelPolicy restricts which commands may run in a channel. An empty
// Collections list allows every collection.
type ChannelPolicy struct {
	AllowCommands bool     `json:"allow_commands"`
	Collections   []string `json:"collections,omitempty"`
}

// AllowAll is the policy applied when nothing is configured.
var AllowAll = ChannelPolicy{AllowCommands: true}

// AllowsCollection reports whether commands from collection may run.
// Collection names compare case-insensitively.
func (p ChannelPolicy) AllowsCollection(name string) bool {
	if len(p.Collections) == 0 {
		return true
	}
	return slices.ContainsFunc(p.Collections, func(c string) bool {
		return strings.EqualFold(c, name)
	})
}

// Store is the bot's persistent state on top of a KV backend.
type Store struct {
	kv KV
}

// NewStore wraps kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// GuildVar implements commands.VarReader.
func (s *Store) GuildVar(ctx context.Context, guildID, name string) (string, bool, error) {
	vars, _, err := Load[map[string]string](ctx, s.kv, guildVarsKey(guildID))
	if err != nil {
		return "", false, err
	}
	value, ok := vars[name]
	return value, ok, nil
}

// GuildVars returns a copy of every variable of a guild.
func (s *Store) GuildVars(ctx context.Context, guildID string) (map[string]string, error) {
	vars, _, err := Load[map[string]string](ctx, s.kv, guildVarsKey(guildID))
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, nil
}

// SetGuildVar stores a guild variable.
func (s *Store) SetGuildVar(ctx context.Context, guildID, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("guild variable name cannot be empty")
	}
	return Modify(ctx, s.kv, guildVarsKey(guildID), func(vars map[string]string, _ bool) (map[string]string, error) {
		if vars == nil {
			vars = make(map[string]string, 1)
		}
		vars[name] = value
		return vars, nil
	})
}

// DeleteGuildVar removes a guild variable and reports whether it existed.
func (s *Store) DeleteGuildVar(ctx context.Context, guildID, name string) (bool, error) {
	var found bool
	err := Modify(ctx, s.kv, guildVarsKey(guildID), func(vars map[string]string, _ bool) (map[string]string, error) {
		_, found = vars[name]
		delete(vars, name)
		return vars, nil
	})
	return found, err
}

// BotAdmins returns the bot admins added at runtime, sorted.
func (s *Store) BotAdmins(ctx context.Context) ([]string, error) {
	admins, _, err := Load[[]string](ctx, s.kv, keyBotAdmins)
	return admins, err
}

// IsBotAdmin reports whether userID was added as bot admin at runtime.
func (s *Store) IsBotAdmin(ctx context.Context, userID string) (bool, error) {
	admins, err := s.BotAdmins(ctx)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(admins, userID)
	return found, nil
}

// AddBotAdmin adds userID. It reports false when already present.
func (s *Store) AddBotAdmin(ctx context.Context, userID string) (bool, error) {
	var added bool
	err := Modify(ctx, s.kv, keyBotAdmins, func(admins []string, _ bool) ([]string, error) {
		i, found := slices.BinarySearch(admins, userID)
		added = !found
		if found {
			return admins, nil
		}
		return slices.Insert(admins, i, userID), nil
	})
	return added, err
}

// RemoveBotAdmin removes userID. It reports false when absent.
func (s *Store) RemoveBotAdmin(ctx context.Context, userID string) (bool, error) {
	var removed bool
	err := Modify(ctx, s.kv, keyBotAdmins, func(admins []string, _ bool) ([]string, error) {
		i, found := slices.BinarySearch(admins, userID)
		removed = found
		if !found {
			return admins, nil
		}
		return slices.Delete(admins, i, i+1), nil
	})
	return removed, err
}

// ChannelPolicy resolves the policy of a channel: its own policy, then the
// guild default, then AllowAll.
func (s *Store) ChannelPolicy(ctx context.Context, guildID, channelID string) (ChannelPolicy, error) {
	for _, key := range []string{channelPolicyKey(channelID), guildPolicyKey(guildID)} {
		policy, ok, err := Load[ChannelPolicy](ctx, s.kv, key)
		if err != nil {
			return AllowAll, err
		}
		if ok {
			return policy, nil
		}
	}
	return AllowAll, nil
}

// SetChannelPolicy stores the policy of a single channel.
func (s *Store) SetChannelPolicy(ctx context.Context, channelID string, policy ChannelPolicy) error {
	return Save(ctx, s.kv, channelPolicyKey(channelID), policy)
}

// ClearChannelPolicy removes a channel's own policy.
func (s *Store) ClearChannelPolicy(ctx context.Context, channelID string) error {
	_, err := s.kv.Delete(ctx, channelPolicyKey(channelID))
	return err
}

// SetGuildPolicy stores the default policy of a guild's channels.
func (s *Store) SetGuildPolicy(ctx context.Context, guildID string, policy ChannelPolicy) error {
	return Save(ctx, s.kv, guildPolicyKey(guildID), policy)
}

// ClearGuildPolicy removes a guild's default policy.
func (s *Store) ClearGuildPolicy(ctx context.Context, guildID string) error {
	_, err := s.kv.Delete(ctx, guildPolicyKey(guildID))
	return err
}

// Increment adds one to a named counter and returns the new value.
func (s *Store) Increment(ctx context.Context, counter string) (int, error) {
	var next int
	err := Modify(ctx, s.kv, keyCounterPrefix+counter, func(n int, _ bool) (int, error) {
		next = n + 1
		return next, nil
	})
	return next, err
}

// Counter returns the value of a named counter, 0 when never incremented.
func (s *Store) Counter(ctx context.Context, counter string) (int, error) {
	n, _, err := Load[int](ctx, s.kv, keyCounterPrefix+counter)
	return n, err
}

// Stamp records t under name.
func (s *Store) Stamp(ctx context.Context, name string, t time.Time) error {
	return Save(ctx, s.kv, keyStampPrefix+name, t.UTC())
}

// LastStamp returns the time last recorded under name.
func (s *Store) LastStamp(ctx context.Context, name string) (time.Time, bool, error) {
	return Load[time.Time](ctx, s.kv, keyStampPrefix+name)
}

var _ commands.VarReader = (*Store)(nil)
