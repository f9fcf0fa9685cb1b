package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func fixed(path string, err error) func() (string, error) {
	return func() (string, error) { return path, err }
}

func TestFindHome(t *testing.T) {
	boom := errors.New("boom")
	installed := filepath.Join("/opt", "blockly", "bin", "blockly-runner")

	tests := []struct {
		name  string
		env   string
		exe   func() (string, error)
		getwd func() (string, error)
		want  string
	}{
		{"env wins", "/custom", fixed(installed, nil), fixed("/work", nil), "/custom"},
		{"installed binary", "", fixed(installed, nil), fixed("/work", nil), filepath.Join("/opt", "blockly")},
		{"binary outside bin", "", fixed("/usr/local/blockly-runner", nil), fixed("/work", nil), "/work"},
		{"no executable", "", fixed("", boom), fixed("/work", nil), "/work"},
		{"nothing known", "", fixed("", boom), fixed("", boom), "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findHome(tt.env, tt.exe, tt.getwd); got != tt.want {
				t.Errorf("findHome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHome_CachedUntilReset(t *testing.T) {
	ResetHome()
	t.Cleanup(ResetHome)
	t.Setenv(EnvHome, "/first")

	if got := Home(); got != "/first" {
		t.Fatalf("Home() = %q, want /first", got)
	}

	t.Setenv(EnvHome, "/second")
	if got := Home(); got != "/first" {
		t.Errorf("Home() = %q, want cached /first", got)
	}

	ResetHome()
	if got, want := LogsDir(), filepath.Join("/second", "logs"); got != want {
		t.Errorf("LogsDir() = %q, want %q", got, want)
	}
}
