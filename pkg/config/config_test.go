package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
adbURL: http://10.0.0.5:8000
executorURL: http://10.0.0.5:8001
repeat: 5
iterationDelay: 500ms
resetStepDelay: 0s
logFile: /tmp/runner.log
logLevel: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", cfg.ADBURL)
	assert.Equal(t, "http://10.0.0.5:8001", cfg.ExecutorURL)
	assert.Equal(t, 5, cfg.Repeat)
	assert.Equal(t, 500*time.Millisecond, cfg.IterationDelay)
	assert.Equal(t, time.Duration(0), cfg.ResetStepDelay)
	assert.Equal(t, "/tmp/runner.log", cfg.LogPath())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "repeat: 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Repeat)
	assert.Equal(t, DefaultADBURL, cfg.ADBURL)
	assert.Equal(t, DefaultExecutorURL, cfg.ExecutorURL)
	assert.Equal(t, DefaultIterationDelay, cfg.IterationDelay)
	assert.Equal(t, DefaultResetStepDelay, cfg.ResetStepDelay)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "repeat: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	t.Run("prefers config.yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yaml", "repeat: 2\n")
		writeConfig(t, dir, "config.yml", "repeat: 9\n")

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Repeat)
	})

	t.Run("falls back to config.yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yml", "repeat: 9\n")

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Repeat)
	})

	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvADBURL, "http://device:9000")
	t.Setenv(EnvExecutorURL, "")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "http://device:9000", cfg.ADBURL)
	assert.Equal(t, DefaultExecutorURL, cfg.ExecutorURL)
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.ADBURL = "not a url"
	cfg.Repeat = 101
	cfg.IterationDelay = -time.Second
	cfg.LogLevel = "trace"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, core.ErrCategoryConfig, core.CategoryOf(err))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	msg := err.Error()
	assert.Contains(t, msg, "adbURL must be a URL")
	assert.Contains(t, msg, "repeat must be at most 100")
	assert.Contains(t, msg, "iterationDelay must be at least 0")
	assert.Contains(t, msg, "logLevel must be one of debug, info, warn, error")

	var execErr *core.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Len(t, execErr.Details, 4)
}

func TestValidate_RepeatLowerBound(t *testing.T) {
	cfg := Default()
	cfg.Repeat = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeat must be at least 1")
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "json", cfg.LogFormat)

	cfg.LogFormat = "text"
	assert.NoError(t, cfg.Validate())

	cfg.LogFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logFormat must be one of json, text")
}

func TestLogPath_DefaultsToHome(t *testing.T) {
	ResetHome()
	t.Setenv("BLOCKLY_RUNNER_HOME", "/test/home")
	t.Cleanup(ResetHome)

	assert.Equal(t, filepath.Join("/test/home", "logs", "blockly-runner.log"), Default().LogPath())
}
