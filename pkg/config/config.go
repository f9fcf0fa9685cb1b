// Package config handles configuration for blockly-runner.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the config file nor flags set a value.
const (
	DefaultADBURL         = "http://localhost:8000"
	DefaultExecutorURL    = "http://localhost:8001"
	DefaultRepeat         = 1
	DefaultIterationDelay = 2 * time.Second
	DefaultResetStepDelay = 200 * time.Millisecond
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"

	// MaxRepeat is the largest batch size accepted.
	MaxRepeat = 100
)

// Environment variables overriding the service URLs.
const (
	EnvADBURL      = "BLOCKLY_ADB_URL"
	EnvExecutorURL = "BLOCKLY_EXECUTOR_URL"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Services
	ADBURL      string `yaml:"adbURL" validate:"required,url"`
	ExecutorURL string `yaml:"executorURL" validate:"required,url"`

	// Batch execution
	Repeat         int           `yaml:"repeat" validate:"min=1,max=100"`
	IterationDelay time.Duration `yaml:"iterationDelay" validate:"gte=0"`
	ResetStepDelay time.Duration `yaml:"resetStepDelay" validate:"gte=0"`

	// Logging. An empty LogFile means <home>/logs/blockly-runner.log; the
	// text format is zerolog's console layout.
	LogFile   string `yaml:"logFile"`
	LogLevel  string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" validate:"oneof=json text"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		ADBURL:         DefaultADBURL,
		ExecutorURL:    DefaultExecutorURL,
		Repeat:         DefaultRepeat,
		IterationDelay: DefaultIterationDelay,
		ResetStepDelay: DefaultResetStepDelay,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// Load loads configuration from a file. Fields the file omits keep their
// defaults. The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	return Default(), nil
}

// ApplyEnv overrides the service URLs from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvADBURL); v != "" {
		c.ADBURL = v
	}
	if v := os.Getenv(EnvExecutorURL); v != "" {
		c.ExecutorURL = v
	}
}

// LogPath returns the log file to write, falling back to the home directory.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(LogsDir(), "blockly-runner.log")
}
