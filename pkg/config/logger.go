package config

import (
	"strings"

	"botcore/pkg/logger"
)

// ToLoggerConfig converts the logger section to logger.Config.
func (lc *LoggerConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:            logger.Level(strings.ToLower(strings.TrimSpace(lc.Level))),
		OutputPath:       expandPath(lc.OutputPath),
		MaxSize:          lc.MaxSize,
		MaxBackups:       lc.MaxBackups,
		MaxAge:           lc.MaxAge,
		Compress:         lc.Compress,
		Development:      lc.Development,
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}
