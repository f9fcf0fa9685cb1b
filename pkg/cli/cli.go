// Package cli provides the command-line interface for blockly-runner.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/blockly-runner/pkg/adb"
	"github.com/devicelab-dev/blockly-runner/pkg/config"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
	"github.com/devicelab-dev/blockly-runner/pkg/report"
	"github.com/devicelab-dev/blockly-runner/pkg/scriptapi"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags returns the flags available to all commands.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config.yaml (default: ./config.yaml or ./config.yml)",
		},
		&cli.StringFlag{
			Name:  "adb-url",
			Usage: "Device-control service URL",
		},
		&cli.StringFlag{
			Name:  "executor-url",
			Usage: "Script-execution service URL",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Log at debug level",
			EnvVars: []string{"BLOCKLY_VERBOSE"},
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable ANSI colors",
		},
	}
}

// NewApp builds the command tree.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "blockly-runner",
		Usage:   "Run block-editor scripts against a remote Android device",
		Version: Version,
		Description: `blockly-runner submits scripts produced by the block editor to the
script-execution service, resets the device between repeated runs and
drives the device-control service directly.

Examples:
  blockly-runner run script.js
  blockly-runner run --repeat 5 --output ./reports script.js
  blockly-runner plan script.js
  blockly-runner reset
  blockly-runner device click 540 1200`,
		Flags: GlobalFlags(),
		Commands: []*cli.Command{
			newRunCommand(),
			newPlanCommand(),
			newResetCommand(),
			newHealthCommand(),
			newDeviceCommand(),
			newTemplateCommand(),
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session holds what every command needs once flags and config are resolved.
type session struct {
	cfg     *config.Config
	out     io.Writer
	printer *report.Printer
	adb     *adb.Client
	scripts *scriptapi.Client
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	colors := !c.Bool("no-color") && report.ColorsEnabled(out)

	s := &session{
		cfg:     cfg,
		out:     out,
		printer: report.NewPrinter(out, colors),
		adb:     adb.NewClient(cfg.ADBURL),
		scripts: scriptapi.NewClient(cfg.ExecutorURL),
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	} else if c.Bool("verbose") {
		_ = logger.SetLevel("debug")
	}
	logger.Info("blockly-runner %s: command %q (adb %s, executor %s)",
		Version, c.Command.Name, cfg.ADBURL, cfg.ExecutorURL)
	return s, nil
}

func (s *session) Close() {
	s.adb.Close()
	s.scripts.Close()
	logger.Close()
}

// loadConfig resolves configuration: file, then environment, then flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv()
	if c.IsSet("adb-url") {
		cfg.ADBURL = c.String("adb-url")
	}
	if c.IsSet("executor-url") {
		cfg.ExecutorURL = c.String("executor-url")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return logger.Init(path, logger.Options{
		Level:         cfg.LogLevel,
		HumanReadable: cfg.LogFormat == "text",
	})
}

// readScript returns the script named by the first argument; "-" reads stdin.
func readScript(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("a script file (or - for stdin) is required")
	}

	arg := c.Args().First()
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		in := c.App.Reader
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(arg) //#nosec G304 -- user-provided script
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

// argList splits a comma-separated flag value, dropping blanks.
func argList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
