package main

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kardianos/service"

	"botcore/pkg/config"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	original := configPath
	t.Cleanup(func() {
		configPath = original
	})
	configPath = path
}

func TestServiceConfig_DefaultArguments(t *testing.T) {
	withConfigPath(t, "")
	t.Setenv(config.ConfigPathEnv, "")

	got := ServiceConfig().Arguments
	want := []string{"run"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected arguments %v, got %v", want, got)
	}
}

func TestServiceConfig_IncludesConfigFlag(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "service-config.json")
	withConfigPath(t, configFile)
	t.Setenv(config.ConfigPathEnv, "")

	got := ServiceConfig().Arguments
	want := []string{"-c", configFile, "run"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected arguments %v, got %v", want, got)
	}
}

func TestServiceConfig_UsesConfigPathEnvWhenFlagNotProvided(t *testing.T) {
	withConfigPath(t, "")
	configFile := filepath.Join(t.TempDir(), "env-config.json")
	t.Setenv(config.ConfigPathEnv, configFile)

	got := ServiceConfig().Arguments
	want := []string{"-c", configFile, "run"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected arguments %v, got %v", want, got)
	}
}

func TestStatusText(t *testing.T) {
	cases := map[service.Status]string{
		service.StatusRunning: "Running",
		service.StatusStopped: "Stopped",
		service.StatusUnknown: "Unknown",
	}
	for status, want := range cases {
		if got := StatusText(status); got != want {
			t.Fatalf("StatusText(%d) = %q, want %q", status, got, want)
		}
	}
}
