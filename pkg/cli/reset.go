package cli

import (
	"fmt"

	"github.com/devicelab-dev/blockly-runner/pkg/executor"
	"github.com/devicelab-dev/blockly-runner/pkg/report"
	"github.com/devicelab-dev/blockly-runner/pkg/scriptapi"
	"github.com/urfave/cli/v2"
)

func newResetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Close all apps and go to the home screen",
		Description: `Run the device reset used between repeated iterations.

By default the reset is driven from here through the device-control
service. With --remote the script-execution service performs it.

Examples:
  blockly-runner reset
  blockly-runner reset --remote`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Ask the script-execution service to reset the device",
			},
		},
		Action: runReset,
	}
}

func newHealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check both services",
		Action: runHealth,
	}
}

func runReset(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Bool("remote") {
		res, err := s.scripts.ResetDevice(c.Context)
		if err != nil {
			s.printer.Status(report.FailureStatus(err))
			return err
		}
		summary := remoteResetSummary(res)
		s.printer.Reset(summary)
		s.printer.Status(resetStatus(summary))
		return nil
	}

	exec := executor.New(s.adb, nil, executor.Config{ResetStepDelay: s.cfg.ResetStepDelay})
	steps := exec.ResetDevice(c.Context)
	s.printer.Reset(report.SummarizeReset(steps))
	s.printer.Status(report.ResetStatus(steps))
	return nil
}

// remoteResetSummary renders the service-side reset the same way as a local one.
func remoteResetSummary(res *scriptapi.RemoteReset) report.ResetSummary {
	summary := report.ResetSummary{Total: len(res.Results)}
	for _, step := range res.Results {
		line := report.ResetLine{Action: step.Action, Success: step.Success, Detail: step.Error}
		if step.Success {
			summary.Passed++
			if step.Result != nil {
				line.Detail = fmt.Sprint(step.Result)
			}
		}
		summary.Steps = append(summary.Steps, line)
	}
	return summary
}

func resetStatus(s report.ResetSummary) report.Status {
	level := report.LevelSuccess
	if s.Passed != s.Total {
		level = report.LevelWarning
	}
	return report.Status{Message: fmt.Sprintf("reset finished (%d/%d)", s.Passed, s.Total), Level: level}
}

func runHealth(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	healthy := true

	dev, err := s.adb.Health(c.Context)
	switch {
	case err != nil:
		healthy = false
		s.printer.Status(report.Status{Message: fmt.Sprintf("device service %s: %v", s.adb.BaseURL(), err), Level: report.LevelError})
	case !dev.Healthy():
		healthy = false
		s.printer.Status(report.Status{Message: fmt.Sprintf("device service %s: %s %s", s.adb.BaseURL(), dev.Status, dev.Error), Level: report.LevelError})
	default:
		s.printer.Status(report.Status{
			Message: fmt.Sprintf("device service %s: healthy, %d device(s) connected", s.adb.BaseURL(), dev.ConnectedDevices),
			Level:   report.LevelSuccess,
		})
	}

	exe, err := s.scripts.Health(c.Context)
	switch {
	case err != nil:
		healthy = false
		s.printer.Status(report.Status{Message: fmt.Sprintf("execution service %s: %v", s.scripts.BaseURL(), err), Level: report.LevelError})
	case !exe.Healthy():
		healthy = false
		s.printer.Status(report.Status{
			Message: fmt.Sprintf("execution service %s: %s (device service connected: %t)", s.scripts.BaseURL(), exe.Status, exe.ADBAPIConnected),
			Level:   report.LevelError,
		})
	default:
		s.printer.Status(report.Status{Message: fmt.Sprintf("execution service %s: healthy", s.scripts.BaseURL()), Level: report.LevelSuccess})
	}

	if !healthy {
		return fmt.Errorf("one or more services are unhealthy")
	}
	return nil
}
