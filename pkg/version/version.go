// Package version reports build information of the botcore binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is injected at build time via -ldflags.
	Version = "dev"
	// BuildTime is injected at build time via -ldflags.
	BuildTime = "unknown"
	// GitCommit is injected at build time via -ldflags.
	GitCommit = "unknown"
)

// Name is the application name.
const Name = "botcore"

// GetVersion returns the short semantic version.
func GetVersion() string {
	return Version
}

// Commit returns the injected commit, falling back to the VCS revision
// recorded by the Go toolchain.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return GitCommit
}

// GetFullVersion returns a user-facing build string.
func GetFullVersion() string {
	if Version == "dev" {
		return fmt.Sprintf("%s/%s (commit: %s, built: %s)", Name, Version, Commit(), BuildTime)
	}
	return fmt.Sprintf("%s/%s", Name, Version)
}

// Runtime describes the Go runtime, e.g. "go1.26.0 linux/amd64".
func Runtime() string {
	return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
