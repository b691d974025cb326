package version

import (
	"strings"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "dev"
	if got := GetFullVersion(); !strings.HasPrefix(got, "botcore/dev (commit: ") {
		t.Fatalf("unexpected dev version %q", got)
	}

	Version = "1.2.3"
	if got := GetFullVersion(); got != "botcore/1.2.3" {
		t.Fatalf("unexpected release version %q", got)
	}
}

func TestCommitPrefersInjectedValue(t *testing.T) {
	old := GitCommit
	defer func() { GitCommit = old }()

	GitCommit = "abc1234"
	if got := Commit(); got != "abc1234" {
		t.Fatalf("Commit() = %q", got)
	}
}
