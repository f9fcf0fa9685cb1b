package config

import (
	"os"
	"path/filepath"
	"sync"
)

// EnvHome overrides the runner home directory.
const EnvHome = "BLOCKLY_RUNNER_HOME"

var home struct {
	once sync.Once
	dir  string
}

// Home returns the directory that holds logs/.
// $BLOCKLY_RUNNER_HOME wins, then <dir> for a binary installed as
// <dir>/bin/blockly-runner, then the working directory.
func Home() string {
	home.once.Do(func() {
		home.dir = findHome(os.Getenv(EnvHome), os.Executable, os.Getwd)
	})
	return home.dir
}

// LogsDir returns <home>/logs.
func LogsDir() string {
	return filepath.Join(Home(), "logs")
}

func findHome(env string, executable, getwd func() (string, error)) string {
	if env != "" {
		return env
	}
	if exe, err := executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if dir := filepath.Dir(exe); filepath.Base(dir) == "bin" {
			return filepath.Dir(dir)
		}
	}
	if wd, err := getwd(); err == nil {
		return wd
	}
	return "."
}

// ResetHome forgets the cached home directory. Tests only.
func ResetHome() {
	home.once = sync.Once{}
	home.dir = ""
}
