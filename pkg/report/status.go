package report

import (
	"fmt"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/validator"
)

// Level classifies a status line.
type Level string

// Level values.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Status is the last-known status line shown to the user.
type Status struct {
	Message string
	Level   Level
}

func (s Status) String() string {
	return s.Message
}

// ExecutionStatus reports the outcome of a single run.
func ExecutionStatus(r *core.ExecutionResult) Status {
	if r.AllPassed() {
		return Status{"script finished", LevelSuccess}
	}
	return Status{"finished with errors", LevelWarning}
}

// RepeatStatus reports the outcome of a repeated run.
func RepeatStatus(r *core.RepeatRunResult) Status {
	level := LevelSuccess
	if r.CompletedIterations != r.TotalIterations {
		level = LevelWarning
	}
	return Status{fmt.Sprintf("batch finished: %d/%d", r.CompletedIterations, r.TotalIterations), level}
}

// ResetStatus reports the outcome of a device reset.
func ResetStatus(steps []core.ResetStepResult) Status {
	s := SummarizeReset(steps)
	level := LevelSuccess
	if s.Passed != s.Total {
		level = LevelWarning
	}
	return Status{fmt.Sprintf("reset finished (%d/%d)", s.Passed, s.Total), level}
}

// FailureStatus reports a run that ended with an error.
func FailureStatus(err error) Status {
	return Status{fmt.Sprintf("execution failed: %v", err), LevelError}
}

// StartStatus announces a run of repeat iterations.
func StartStatus(repeat int) Status {
	if repeat <= 1 {
		return Status{"executing script...", LevelInfo}
	}
	return Status{fmt.Sprintf("batch started: %d iterations...", repeat), LevelInfo}
}

// PlanStatus reports the outcome of a dry run.
func PlanStatus(r *validator.Result) Status {
	if r.IsValid() {
		return Status{fmt.Sprintf("plan valid: %d statement(s)", r.Statements), LevelSuccess}
	}
	return Status{fmt.Sprintf("plan has %d issue(s)", len(r.Errors)), LevelError}
}

// StoppingStatus acknowledges a stop request.
func StoppingStatus() Status {
	return Status{"stopping...", LevelWarning}
}
