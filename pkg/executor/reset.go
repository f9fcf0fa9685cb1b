package executor

import (
	"context"

	"github.com/devicelab-dev/blockly-runner/pkg/adb"
	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
)

type resetStep struct {
	action string
	call   func(ctx context.Context) (adb.Response, error)
}

// ResetDevice closes all apps and returns to the home screen. Step failures
// are recorded and the sequence continues; it never fails as a whole.
// It does not touch the run state, so it can be used on its own.
func (e *Executor) ResetDevice(ctx context.Context) []core.ResetStepResult {
	steps := []resetStep{
		{adb.PathCloseApps, e.device.CloseAllApps},
		{adb.PathHome, e.device.PressHome},
	}

	results := make([]core.ResetStepResult, 0, len(steps))
	for _, step := range steps {
		resp, err := step.call(ctx)
		if err != nil {
			logger.Warn("reset step %s failed: %v", step.action, err)
			results = append(results, core.ResetStepResult{
				Action:  step.action,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		results = append(results, core.ResetStepResult{
			Action:  step.action,
			Success: true,
			Result:  resp,
		})
		// A cancelled context surfaces on the next call, which is recorded like any other failure.
		_ = sleep(ctx, e.config.ResetStepDelay, nil)
	}
	return results
}
