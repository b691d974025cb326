package commands

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"botcore/pkg/args"
	"botcore/pkg/config"
	"botcore/pkg/logger"
)

// Module provides the command registry, the argument parser registry and the
// text parser. Command packages register through fx.Invoke; Seal runs from
// the dispatcher once every module has been populated.
var Module = fx.Module("commands",
	fx.Provide(args.NewDefaultRegistry),
	fx.Provide(NewRegistry),
	fx.Provide(ProvideParser),
)

// ProvideParser builds the text parser from the bot section and keeps the
// prefix in sync with config reloads.
func ProvideParser(cfg *config.Config, watcher *config.Watcher, log *logger.Logger) *Parser {
	p := NewParser(cfg.Prefix())
	p.DropTrailingEmpty = cfg.Bot.DropTrailingEmpty

	watcher.AddHandler(func(c *config.Config) error {
		prefix := c.Prefix()
		if prefix != p.Prefix() {
			log.Info("Command prefix changed", zap.String("prefix", prefix))
		}
		p.SetPrefix(prefix)
		return nil
	})

	return p
}
