package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/config"
	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/executor"
	"github.com/devicelab-dev/blockly-runner/pkg/jsengine"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
	"github.com/devicelab-dev/blockly-runner/pkg/report"
	"github.com/devicelab-dev/blockly-runner/pkg/validator"
	"github.com/urfave/cli/v2"
)

// errScriptFailed makes the process exit non-zero after a run with failed statements.
var errScriptFailed = errors.New("script finished with errors")

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a script on the device",
		ArgsUsage: "<script|->",
		Description: `Submit a script to the script-execution service.

With --repeat N (N > 1) the device is reset before each iteration and
iterations are separated by the configured delay. Ctrl+C once stops after
the current iteration; twice aborts immediately.

Reports (report.json and report.html) are written only when --output is given:
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/

Examples:
  blockly-runner run script.js
  cat script.js | blockly-runner run -
  blockly-runner run --repeat 10 --output ./reports script.js
  blockly-runner run --dry-run script.js`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "repeat",
				Aliases: []string{"n"},
				Usage:   fmt.Sprintf("Number of iterations (1-%d)", config.MaxRepeat),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Plan and validate the script locally without touching the device",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output directory for report.json and report.html",
			},
			&cli.BoolFlag{
				Name:  "flatten",
				Usage: "Don't create timestamp subfolder (requires --output)",
			},
			&cli.StringFlag{
				Name:  "templates",
				Usage: "Comma-separated template ids the script may reference (dry run only)",
			},
		},
		Action: runScript,
	}
}

func newPlanCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "List the statements a script would submit and check them",
		ArgsUsage: "<script|->",
		Description: `Evaluate a script locally with recording stubs and validate every
statement against the catalog the execution service understands.
Probes such as find_template() are assumed to succeed.

Examples:
  blockly-runner plan script.js
  blockly-runner plan --templates login.png,ok.png script.js`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "templates",
				Usage: "Comma-separated template ids the script may reference",
			},
			&cli.IntFlag{
				Name:  "budget",
				Usage: "Maximum number of statements before planning aborts",
				Value: jsengine.DefaultBudget,
			},
		},
		Action: runPlan,
	}
}

func runPlan(c *cli.Context) error {
	script, err := readScript(c)
	if err != nil {
		return err
	}
	out := c.App.Writer
	colors := !c.Bool("no-color") && report.ColorsEnabled(out)
	return planScript(c.Context, report.NewPrinter(out, colors), script,
		argList(c.String("templates")), jsengine.WithBudget(c.Int("budget")))
}

// planScript prints the plan of script and fails when validation finds issues.
func planScript(ctx context.Context, p *report.Printer, script string, templates []string, opts ...jsengine.Option) error {
	plan, err := jsengine.New(opts...).Plan(ctx, script)
	if err != nil {
		p.Status(report.FailureStatus(err))
		return err
	}

	result := validator.New(templates).Validate(plan)
	p.Plan(plan, result)
	if !result.IsValid() {
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}
	return nil
}

func runScript(c *cli.Context) error {
	script, err := readScript(c)
	if err != nil {
		return err
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	repeat := s.cfg.Repeat
	if c.IsSet("repeat") {
		repeat = c.Int("repeat")
	}
	if repeat < 1 || repeat > config.MaxRepeat {
		return core.ErrInvalidRepeat.
			WithMessage(fmt.Sprintf("repeat count must be between 1 and %d", config.MaxRepeat)).
			WithDetails(map[string]interface{}{"repeat": repeat})
	}

	if c.Bool("dry-run") {
		return planScript(c.Context, s.printer, script, argList(c.String("templates")))
	}

	outputDir := ""
	if c.String("output") != "" || c.Bool("flatten") {
		outputDir, err = resolveOutputDir(c.String("output"), c.Bool("flatten"))
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	exec := executor.New(s.adb, s.scripts, executor.Config{
		IterationDelay: s.cfg.IterationDelay,
		ResetStepDelay: s.cfg.ResetStepDelay,
		OnIterationStart: func(iteration, total int) {
			logger.Info("Iteration %d/%d started", iteration, total)
			s.printer.IterationStart(iteration, total)
		},
		OnIterationEnd: func(outcome core.IterationOutcome) {
			if outcome.Status == core.IterationCompleted {
				s.printer.Reset(report.SummarizeReset(outcome.ResetResult))
			}
			s.printer.Iteration(report.SummarizeIteration(outcome))
		},
	})

	// Handle SIGINT/SIGTERM: stop after the current iteration, abort on the second
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := watchInterrupts(sigCh, exec.Stop, cancel, func() {
		s.printer.Status(report.StoppingStatus())
	})
	defer done()

	s.printer.Status(report.StartStatus(repeat))

	var doc *report.Document
	var runErr error
	if repeat == 1 {
		var result *core.ExecutionResult
		result, runErr = exec.Execute(ctx, script)
		if result != nil {
			s.printer.Execution(report.Summarize(result))
			if runErr == nil && !report.Summarize(result).Success {
				runErr = errScriptFailed
			}
		}
		doc = report.NewDocument(script, result, nil, ignoreFailed(runErr))
	} else {
		var result *core.RepeatRunResult
		result, runErr = exec.ExecuteWithRepeat(ctx, script, repeat)
		if result != nil {
			s.printer.Repeat(report.SummarizeRepeat(result))
		}
		doc = report.NewDocument(script, nil, result, runErr)
	}
	s.printer.Status(statusOf(doc))

	if outputDir != "" {
		if _, err := report.WriteJSON(outputDir, doc); err != nil {
			logger.Error("Failed to write report: %v", err)
			return err
		}
		htmlPath, err := report.WriteHTML(outputDir, doc)
		if err != nil {
			logger.Error("Failed to generate HTML report: %v", err)
			return err
		}
		fmt.Fprintf(s.out, "  Report: %s\n", htmlPath)
	}

	if runErr != nil {
		logger.Error("Run failed: %v", runErr)
	}
	return runErr
}

func ignoreFailed(err error) error {
	if errors.Is(err, errScriptFailed) {
		return nil
	}
	return err
}

func statusOf(doc *report.Document) report.Status {
	return report.Status{Message: doc.Status, Level: doc.Level}
}

// watchInterrupts turns the first signal into a stop request and the second
// into a cancellation. The returned func ends the watch.
func watchInterrupts(sigCh <-chan os.Signal, stop, cancel, onStop func()) func() {
	quit := make(chan struct{})
	go func() {
		stopped := false
		for {
			select {
			case sig := <-sigCh:
				if !stopped {
					logger.Info("Received signal %v, stopping after the current iteration", sig)
					stopped = true
					onStop()
					stop()
					continue
				}
				logger.Info("Received signal %v again, aborting", sig)
				cancel()
				return
			case <-quit:
				return
			}
		}
	}()
	return func() { close(quit) }
}

// resolveOutputDir determines the report directory.
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	if flatten {
		return filepath.Clean(output), nil
	}

	// Create timestamp-based subfolder
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(output, timestamp), nil
}
