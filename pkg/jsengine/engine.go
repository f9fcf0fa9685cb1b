// Package jsengine dry-runs generated scripts in a goja runtime.
//
// Every device statement is a recording stub, so evaluating a script yields
// the ordered list of statements it would submit without touching a device.
package jsengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/logger"
	"github.com/dop251/goja"
)

// Defaults for runaway-script protection.
const (
	DefaultBudget  = 10000
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrBudgetExceeded is returned when a script issues more statements than allowed.
	ErrBudgetExceeded = errors.New("statement budget exceeded")
	// ErrTimeout is returned when evaluation runs longer than allowed.
	ErrTimeout = errors.New("script evaluation timed out")
)

// Statements recorded by the planner. Probes return true so loops guarded by
// them terminate.
var (
	actionStatements = []string{
		"click", "slide", "text", "wait", "go_url", "press_home", "press_back",
		"long_press", "double_tap", "click_object",
	}
	probeStatements = []string{
		"find_template", "find_text", "check_template", "check_text",
	}
)

// EntryPoint is the function the block editor wraps the program in.
const EntryPoint = "start"

// PlannedStatement is one statement a script would submit.
type PlannedStatement struct {
	Function string        `json:"function"`
	Args     []interface{} `json:"args"`
}

// Engine evaluates scripts into plans.
type Engine struct {
	budget  int
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithBudget caps the number of statements a plan may contain.
func WithBudget(n int) Option {
	return func(e *Engine) { e.budget = n }
}

// WithTimeout caps wall-clock evaluation time.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{budget: DefaultBudget, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// planRun is the state of one Plan call; each call gets a fresh runtime.
type planRun struct {
	runtime    *goja.Runtime
	budget     int
	statements []PlannedStatement

	mu       sync.Mutex
	stopErr  error
	finished bool
}

// interrupt stops evaluation with err unless evaluation already finished.
func (r *planRun) interrupt(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.stopErr != nil {
		return
	}
	r.stopErr = err
	r.runtime.Interrupt(err)
}

func (r *planRun) finish() {
	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
}

// Plan evaluates script and returns the statements it would submit, in order.
// If the script defines start(), it is called after the top level runs.
func (e *Engine) Plan(ctx context.Context, script string) ([]PlannedStatement, error) {
	run := &planRun{runtime: goja.New(), budget: e.budget}
	run.setupStatements()
	run.setupConsole()

	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() { run.interrupt(ErrTimeout) })
		defer timer.Stop()
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			run.interrupt(ctx.Err())
		case <-done:
		}
	}()

	err := run.evaluate(script)
	run.finish()
	if err != nil {
		return run.statements, err
	}
	return run.statements, nil
}

func (r *planRun) evaluate(script string) error {
	if _, err := r.runtime.RunString(script); err != nil {
		return r.wrap(err)
	}

	start, ok := goja.AssertFunction(r.runtime.Get(EntryPoint))
	if !ok {
		return nil
	}
	if _, err := start(goja.Undefined()); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *planRun) wrap(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			if errors.Is(cause, ErrBudgetExceeded) {
				return fmt.Errorf("%w: more than %d statements", ErrBudgetExceeded, r.budget)
			}
			return cause
		}
	}

	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("JS syntax error: %w", err)
	}
	return fmt.Errorf("JS runtime error: %w", err)
}

// setupStatements registers a recording stub per known statement.
func (r *planRun) setupStatements() {
	for _, name := range actionStatements {
		r.runtime.Set(name, r.recorder(name, goja.Undefined()))
	}
	for _, name := range probeStatements {
		r.runtime.Set(name, r.recorder(name, r.runtime.ToValue(true)))
	}
}

func (r *planRun) recorder(name string, ret goja.Value) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if r.budget > 0 && len(r.statements) >= r.budget {
			r.interrupt(ErrBudgetExceeded)
			return goja.Undefined()
		}

		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		r.statements = append(r.statements, PlannedStatement{Function: name, Args: args})
		return ret
	}
}

// setupConsole routes console.log and friends to the log file.
func (r *planRun) setupConsole() {
	makeConsoleFunc := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			logger.Debug("script console.%s: %v", level, args)
			return goja.Undefined()
		}
	}

	console := r.runtime.NewObject()
	console.Set("log", makeConsoleFunc("log"))
	console.Set("error", makeConsoleFunc("error"))
	console.Set("warn", makeConsoleFunc("warn"))
	r.runtime.Set("console", console)
}
