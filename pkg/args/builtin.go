package args

import (
	"context"
	"strconv"
	"strings"

	"botcore/pkg/platform"
)

// Failure reasons of the built-in parsers.
const (
	ReasonInt64   = "Could not parse to a signed 64-bit integer value!"
	ReasonUint64  = "Could not parse to an unsigned 64-bit integer value!"
	ReasonFloat64 = "Could not parse to a 64-bit floating point value!"
	ReasonBool    = "Could not parse to a boolean value!"
	ReasonUser    = "Could not find a matching discord user!"
	ReasonMember  = "Could not find a matching discord guild user!"
	ReasonRole    = "Could not find a matching discord guild role!"
	ReasonChannel = "Could not find a matching discord guild textchannel"
	ReasonGuild   = "Could not find a matching discord guild!"
)

func registerBuiltins(r *Registry) {
	_ = Register(r, parseInt64, nil, ReasonInt64)
	_ = Register(r, parseUint64, nil, ReasonUint64)
	_ = Register(r, parseFloat64, nil, ReasonFloat64)
	_ = Register(r, parseString, nil, "")
	_ = Register(r, parseBool, nil, ReasonBool)

	_ = Register(r,
		func(ctx context.Context, s Scope, token string) (platform.User, bool) {
			return ResolveUser(ctx, s, token, AllStrategies)
		}, nil, ReasonUser)
	_ = Register(r, nil,
		func(ctx context.Context, s Scope, token string) (platform.Member, bool) {
			return ResolveMember(ctx, s, token, AllStrategies)
		}, ReasonMember)
	_ = Register(r, nil,
		func(ctx context.Context, s Scope, token string) (platform.Role, bool) {
			return ResolveRole(ctx, s, token, AllStrategies)
		}, ReasonRole)
	_ = Register(r, nil,
		func(ctx context.Context, s Scope, token string) (platform.Channel, bool) {
			return ResolveChannel(ctx, s, token, AllStrategies)
		}, ReasonChannel)
	_ = Register(r,
		func(ctx context.Context, s Scope, token string) (platform.Guild, bool) {
			return ResolveGuild(ctx, s, token, AllStrategies)
		}, nil, ReasonGuild)
}

func parseInt64(_ context.Context, _ Scope, token string) (int64, bool) {
	v, err := strconv.ParseInt(token, 10, 64)
	return v, err == nil
}

func parseUint64(_ context.Context, _ Scope, token string) (uint64, bool) {
	v, err := strconv.ParseUint(token, 10, 64)
	return v, err == nil
}

func parseFloat64(_ context.Context, _ Scope, token string) (float64, bool) {
	v, err := strconv.ParseFloat(token, 64)
	return v, err == nil
}

func parseString(_ context.Context, _ Scope, token string) (string, bool) {
	return token, true
}

func parseBool(_ context.Context, _ Scope, token string) (bool, bool) {
	switch strings.ToLower(token) {
	case "yes", "y", "on", "enable", "enabled":
		return true, true
	case "no", "n", "off", "disable", "disabled":
		return false, true
	}
	v, err := strconv.ParseBool(token)
	return v, err == nil
}
