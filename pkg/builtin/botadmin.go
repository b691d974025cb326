package builtin

import (
	"context"
	"fmt"
	"strings"

	"botcore/pkg/commands"
	"botcore/pkg/platform"
)

type botAdminAction struct {
	mode string
	user platform.User
}

func (s *Set) botAdminCommand() *commands.Command {
	return &commands.Command{
		Summary: "Lists, adds or removes bot admins",
		Remarks: "Admins listed in the configuration file are always bot admins and are not shown here.",
		Arguments: []commands.Argument{
			{Name: "Action", Help: "One of `list`, `add` or `remove`"},
			{Name: "User", Help: "The user to add or remove", Optional: true},
		},
		ExecutePreconditions: []commands.Precondition{commands.RequireBotAdmin()},
		ViewPreconditions:    []commands.Precondition{commands.RequireBotAdmin()},
		Behavior: &commands.Handler[botAdminAction]{
			ParseDM: func(ctx context.Context, c *commands.Context) (botAdminAction, error) {
				action, _ := c.Arg(0)
				a := botAdminAction{mode: strings.ToLower(action)}
				switch a.mode {
				case "list":
					return a, nil
				case "add", "remove":
					user, err := commands.ParseArg[platform.User](ctx, c, 1)
					if err != nil {
						return a, err
					}
					a.user = user
					return a, nil
				default:
					return a, commands.Invalid("Action", "Must be one of `list`, `add` or `remove`!")
				}
			},
			ExecDM: s.execBotAdmin,
		},
	}
}

func (s *Set) execBotAdmin(ctx context.Context, c *commands.Context, a botAdminAction) error {
	switch a.mode {
	case "add":
		added, err := s.store.AddBotAdmin(ctx, a.user.ID)
		if err != nil {
			return err
		}
		if !added {
			return replyText(ctx, c, fmt.Sprintf("%s already is a bot admin", a.user.Mention()))
		}
		return replyText(ctx, c, fmt.Sprintf("Added %s as bot admin", a.user.Mention()))

	case "remove":
		removed, err := s.store.RemoveBotAdmin(ctx, a.user.ID)
		if err != nil {
			return err
		}
		if !removed {
			return replyText(ctx, c, fmt.Sprintf("%s is not a bot admin", a.user.Mention()))
		}
		return replyText(ctx, c, fmt.Sprintf("Removed %s from the bot admins", a.user.Mention()))

	default:
		admins, err := s.store.BotAdmins(ctx)
		if err != nil {
			return err
		}
		embed := platform.Embed{
			Title:       fmt.Sprintf("Bot Admins - %d", len(admins)),
			Description: "None",
			Color:       commands.ColorDefault,
		}
		if len(admins) > 0 {
			mentions := make([]string, len(admins))
			for i, id := range admins {
				mentions[i] = platform.User{ID: id}.Mention()
			}
			embed.Description = strings.Join(mentions, "\n")
		}
		return c.ReplyEmbed(ctx, embed)
	}
}
