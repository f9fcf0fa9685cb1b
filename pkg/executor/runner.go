// Package executor submits scripts to the execution service, repeats runs
// with a device reset between iterations and honours cooperative stops.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/adb"
	"github.com/devicelab-dev/blockly-runner/pkg/core"
	"github.com/devicelab-dev/blockly-runner/pkg/logger"
	"github.com/google/uuid"
)

// StopMessage is recorded on the iteration that observed a stop request.
const StopMessage = "execution stopped by user"

// DeviceController is the part of the device-control service the executor
// drives directly. *adb.Client satisfies it.
type DeviceController interface {
	CloseAllApps(ctx context.Context) (adb.Response, error)
	PressHome(ctx context.Context) (adb.Response, error)
}

// ScriptService runs script text remotely. *scriptapi.Client satisfies it.
type ScriptService interface {
	Execute(ctx context.Context, code string) (*core.ExecutionResult, error)
}

// Config configures an Executor. Zero delays mean no waiting; the CLI
// fills them from config.Config.
type Config struct {
	IterationDelay time.Duration // Pause between repeat iterations
	ResetStepDelay time.Duration // Settle time after each successful reset step

	// Live progress callbacks
	OnIterationStart func(iteration, total int)
	OnIterationEnd   func(outcome core.IterationOutcome)
}

// Executor owns the execution state for one device. At most one run is in
// flight at a time; a second request fails with core.AlreadyRunningError.
type Executor struct {
	device  DeviceController
	scripts ScriptService
	config  Config

	mu         sync.Mutex
	executing  bool
	shouldStop bool
	stopCh     chan struct{} // closed on the first Stop of a run
}

// New creates an Executor.
func New(device DeviceController, scripts ScriptService, cfg Config) *Executor {
	return &Executor{
		device:  device,
		scripts: scripts,
		config:  cfg,
	}
}

// IsExecuting reports whether a run is in flight.
func (e *Executor) IsExecuting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing
}

// Stop asks the current run to end at the next iteration boundary.
// It never interrupts an in-flight HTTP call and is a no-op when idle.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.executing || e.shouldStop {
		return
	}
	e.shouldStop = true
	close(e.stopCh)
	logger.Info("stop requested")
}

func (e *Executor) begin() (<-chan struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.executing {
		return nil, &core.AlreadyRunningError{}
	}
	e.executing = true
	e.shouldStop = false
	e.stopCh = make(chan struct{})
	return e.stopCh, nil
}

func (e *Executor) end() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.executing = false
	e.shouldStop = false
}

func (e *Executor) stopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shouldStop
}

// Execute runs script once.
func (e *Executor) Execute(ctx context.Context, script string) (*core.ExecutionResult, error) {
	if _, err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	return e.execute(ctx, script)
}

func (e *Executor) execute(ctx context.Context, script string) (*core.ExecutionResult, error) {
	if strings.TrimSpace(script) == "" {
		return nil, core.ErrEmptyScript
	}

	start := time.Now()
	result, err := e.scripts.Execute(ctx, script)
	if err != nil {
		logger.Error("execute failed after %v: %v", time.Since(start), err)
		return nil, err
	}
	logger.Info("execute finished in %v: %d/%d statements succeeded",
		time.Since(start), result.SuccessfulFunctions, result.TotalFunctions)
	return result, nil
}

// ExecuteWithRepeat runs script repeatCount times, resetting the device before
// each iteration. A stop request is honoured at iteration boundaries and
// recorded as a stopped outcome. An execution error aborts the run; the
// outcomes gathered so far are returned together with the error.
func (e *Executor) ExecuteWithRepeat(ctx context.Context, script string, repeatCount int) (*core.RepeatRunResult, error) {
	if repeatCount < 1 {
		return nil, core.ErrInvalidRepeat.WithDetails(map[string]interface{}{"repeat": repeatCount})
	}

	stopCh, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer e.end()

	run := &core.RepeatRunResult{
		RunID:           uuid.NewString(),
		TotalIterations: repeatCount,
		Results:         make([]core.IterationOutcome, 0, repeatCount),
		StartTime:       time.Now(),
	}
	log := logger.With(map[string]interface{}{"run_id": run.RunID})
	log.Info().Int("repeat", repeatCount).Msg("run started")

	finish := func(err error) (*core.RepeatRunResult, error) {
		run.EndTime = time.Now()
		run.ComputeSummary()
		ev := log.Info()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Int("completed", run.CompletedIterations).
			Int("total", run.TotalIterations).
			Dur("duration", run.Duration()).
			Msg("run finished")
		return run, err
	}

	for i := 1; i <= repeatCount; i++ {
		if e.stopRequested() {
			outcome := core.IterationOutcome{
				Iteration: i,
				Status:    core.IterationStopped,
				Message:   StopMessage,
			}
			run.Results = append(run.Results, outcome)
			e.notifyEnd(outcome)
			log.Info().Int("iteration", i).Msg("stopped before iteration")
			break
		}

		if e.config.OnIterationStart != nil {
			e.config.OnIterationStart(i, repeatCount)
		}
		log.Debug().Int("iteration", i).Int("total", repeatCount).Msg("iteration started")

		reset := e.ResetDevice(ctx)

		result, err := e.execute(ctx, script)
		if err != nil {
			return finish(fmt.Errorf("iteration %d: %w", i, err))
		}

		outcome := core.IterationOutcome{
			Iteration:    i,
			Status:       core.IterationCompleted,
			ResetResult:  reset,
			ScriptResult: result,
		}
		run.Results = append(run.Results, outcome)
		e.notifyEnd(outcome)

		if i < repeatCount && !e.stopRequested() {
			if err := sleep(ctx, e.config.IterationDelay, stopCh); err != nil {
				return finish(err)
			}
		}
	}

	return finish(nil)
}

func (e *Executor) notifyEnd(outcome core.IterationOutcome) {
	if e.config.OnIterationEnd != nil {
		e.config.OnIterationEnd(outcome)
	}
}

// sleep waits for d. It returns early with nil when wake is closed and with
// the context error when ctx is done.
func sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
