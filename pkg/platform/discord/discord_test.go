package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
)

func TestToEmbed(t *testing.T) {
	got := toEmbed(platform.Embed{
		Title:       "Help",
		Description: "desc",
		Color:       0xFF0000,
		Fields:      []platform.EmbedField{{Name: "Syntax", Value: "`/x`", Inline: true}},
		Footer:      "Context: Guild",
	})
	want := &discordgo.MessageEmbed{
		Title:       "Help",
		Description: "desc",
		Color:       0xFF0000,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Syntax", Value: "`/x`", Inline: true}},
		Footer:      &discordgo.MessageEmbedFooter{Text: "Context: Guild"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("embed mismatch (-want +got):\n%s", diff)
	}

	if toEmbed(platform.Embed{Title: "x"}).Footer != nil {
		t.Fatal("expected no footer for an empty footer text")
	}
}

func TestConversions(t *testing.T) {
	msg := toMessage(&discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "/help",
		Author:    &discordgo.User{ID: "u1", Username: "alice", Bot: true},
	})
	want := platform.Message{
		ID:        "m1",
		Content:   "/help",
		Author:    platform.User{ID: "u1", Username: "alice", Bot: true},
		ChannelID: "c1",
		GuildID:   "g1",
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}

	member := toMember("g1", &discordgo.Member{
		User:  &discordgo.User{ID: "u1", Username: "alice"},
		Nick:  "Al",
		Roles: []string{"r1"},
	})
	if member.DisplayName() != "Al" || !member.HasRole("r1") || member.GuildID != "g1" {
		t.Fatalf("unexpected member %+v", member)
	}

	admin := toRole("g1", &discordgo.Role{ID: "r1", Name: "Admin", Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages})
	if !admin.Administrator {
		t.Fatal("expected administrator role")
	}
	if toRole("g1", &discordgo.Role{ID: "r2", Permissions: discordgo.PermissionSendMessages}).Administrator {
		t.Fatal("expected plain role")
	}
}

func TestChannelKind(t *testing.T) {
	cases := map[discordgo.ChannelType]platform.ChannelKind{
		discordgo.ChannelTypeGuildText:     platform.ChannelText,
		discordgo.ChannelTypeGuildNews:     platform.ChannelText,
		discordgo.ChannelTypeDM:            platform.ChannelDM,
		discordgo.ChannelTypeGroupDM:       platform.ChannelDM,
		discordgo.ChannelTypeGuildVoice:    platform.ChannelVoice,
		discordgo.ChannelTypeGuildCategory: platform.ChannelOther,
	}
	for in, want := range cases {
		if got := channelKind(in); got != want {
			t.Fatalf("channelKind(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMapError(t *testing.T) {
	if !errors.Is(mapError(discordgo.ErrStateNotFound), platform.ErrNotFound) {
		t.Fatal("expected state miss to map to ErrNotFound")
	}

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !errors.Is(mapError(fmt.Errorf("lookup: %w", notFound)), platform.ErrNotFound) {
		t.Fatal("expected 404 to map to ErrNotFound")
	}

	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if errors.Is(mapError(forbidden), platform.ErrNotFound) {
		t.Fatal("expected 403 to stay as is")
	}
}

func TestAllowFromAndHandler(t *testing.T) {
	c, err := New(logger.NewNop(), config.DiscordConfig{Token: "token", AllowFrom: []string{"u1"}, SendRate: 5, SendBurst: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var got []platform.Message
	c.SetHandler(func(ctx context.Context, msg platform.Message) {
		got = append(got, msg)
	})

	c.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "1", Content: "/a", Author: &discordgo.User{ID: "u1"}}})
	c.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "2", Content: "/b", Author: &discordgo.User{ID: "u2"}}})
	c.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "3", Content: "/c"}})

	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected only the allowed message, got %+v", got)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on an unopened client failed: %v", err)
	}
}
