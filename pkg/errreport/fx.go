package errreport

import (
	"go.uber.org/fx"

	"botcore/pkg/config"
	"botcore/pkg/logger"
	"botcore/pkg/platform"
)

// Module provides the exception reporter.
var Module = fx.Module("errreport",
	fx.Provide(ProvideReporter),
)

// ProvideReporter builds a Handler for the report section and exposes it as
// a Reporter.
func ProvideReporter(cfg *config.Config, p platform.Platform, log *logger.Logger) Reporter {
	return New(log.Named("errreport"), p, cfg.Report.ChannelID, cfg.Report.RoleID)
}
