package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ExecutionResult is the execution service's accounting for one submitted script
type ExecutionResult struct {
	Success             bool              `json:"success"`
	TotalFunctions      int               `json:"total_functions"`
	SuccessfulFunctions int               `json:"successful_functions"`
	Results             []StatementResult `json:"results"`
	Errors              []string          `json:"errors"`
}

// StatementResult is the outcome of one statement of a script.
// Args hold int64, float64, string, bool or nil.
type StatementResult struct {
	Function string        `json:"function"`
	Args     []interface{} `json:"args"`
	Success  bool          `json:"success"`
	Result   *string       `json:"result,omitempty"`
	Error    *string       `json:"error,omitempty"`
}

// FailedStatements returns the statements that did not succeed
func (r *ExecutionResult) FailedStatements() []StatementResult {
	var failed []StatementResult
	for _, s := range r.Results {
		if !s.Success {
			failed = append(failed, s)
		}
	}
	return failed
}

// AllPassed reports whether every statement in the batch succeeded
func (r *ExecutionResult) AllPassed() bool {
	return r.Success && len(r.Errors) == 0 && r.SuccessfulFunctions == r.TotalFunctions
}

// ResetStepResult records one step of the device reset routine
type ResetStepResult struct {
	Action  string                 `json:"action"` // Endpoint path, e.g. /app/close
	Success bool                   `json:"success"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// IterationOutcome records one iteration of a repeated run
type IterationOutcome struct {
	Iteration    int               `json:"iteration"` // 1-based
	Status       IterationStatus   `json:"status"`
	ResetResult  []ResetStepResult `json:"resetResult,omitempty"`
	ScriptResult *ExecutionResult  `json:"scriptResult,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// RepeatRunResult captures the complete outcome of a repeated run
type RepeatRunResult struct {
	RunID string `json:"runId"`

	TotalIterations     int                `json:"totalIterations"`
	CompletedIterations int                `json:"completedIterations"`
	Results             []IterationOutcome `json:"results"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ComputeSummary recalculates CompletedIterations from Results
func (r *RepeatRunResult) ComputeSummary() {
	r.CompletedIterations = 0
	for _, it := range r.Results {
		if it.Status == IterationCompleted {
			r.CompletedIterations++
		}
	}
}

// Stopped reports whether the run ended on a stop request
func (r *RepeatRunResult) Stopped() bool {
	n := len(r.Results)
	return n > 0 && r.Results[n-1].Status == IterationStopped
}

// Duration returns the wall time of the run
func (r *RepeatRunResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// rawExecutionResult mirrors ExecutionResult with pointers so missing fields are detectable
type rawExecutionResult struct {
	Success             *bool                 `json:"success"`
	TotalFunctions      *json.Number          `json:"total_functions"`
	SuccessfulFunctions *json.Number          `json:"successful_functions"`
	Results             *[]rawStatementResult `json:"results"`
	Errors              *[]string             `json:"errors"`
}

type rawStatementResult struct {
	Function *string         `json:"function"`
	Args     *[]interface{}  `json:"args"`
	Success  *bool           `json:"success"`
	Result   json.RawMessage `json:"result"`
	Error    json.RawMessage `json:"error"`
}

// ParseExecutionResult decodes and validates an execution service response.
// The returned error describes the first schema violation found.
func ParseExecutionResult(body []byte) (*ExecutionResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw rawExecutionResult
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch {
	case raw.Success == nil:
		return nil, fmt.Errorf("missing field %q", "success")
	case raw.TotalFunctions == nil:
		return nil, fmt.Errorf("missing field %q", "total_functions")
	case raw.SuccessfulFunctions == nil:
		return nil, fmt.Errorf("missing field %q", "successful_functions")
	case raw.Results == nil:
		return nil, fmt.Errorf("missing field %q", "results")
	case raw.Errors == nil:
		return nil, fmt.Errorf("missing field %q", "errors")
	}

	total, err := count(*raw.TotalFunctions, "total_functions")
	if err != nil {
		return nil, err
	}
	successful, err := count(*raw.SuccessfulFunctions, "successful_functions")
	if err != nil {
		return nil, err
	}
	if successful > total {
		return nil, fmt.Errorf("successful_functions (%d) exceeds total_functions (%d)", successful, total)
	}

	result := &ExecutionResult{
		Success:             *raw.Success,
		TotalFunctions:      total,
		SuccessfulFunctions: successful,
		Results:             make([]StatementResult, 0, len(*raw.Results)),
		Errors:              *raw.Errors,
	}

	for i, rs := range *raw.Results {
		stmt, err := parseStatement(rs)
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		result.Results = append(result.Results, stmt)
	}

	return result, nil
}

func count(n json.Number, field string) (int, error) {
	v, err := n.Int64()
	if err != nil || v < 0 {
		return 0, fmt.Errorf("field %q must be a non-negative integer, got %s", field, n.String())
	}
	return int(v), nil
}

func parseStatement(rs rawStatementResult) (StatementResult, error) {
	if rs.Function == nil || *rs.Function == "" {
		return StatementResult{}, fmt.Errorf("missing field %q", "function")
	}
	if rs.Args == nil {
		return StatementResult{}, fmt.Errorf("missing field %q", "args")
	}
	if rs.Success == nil {
		return StatementResult{}, fmt.Errorf("missing field %q", "success")
	}

	stmt := StatementResult{
		Function: *rs.Function,
		Args:     make([]interface{}, 0, len(*rs.Args)),
		Success:  *rs.Success,
	}

	for i, a := range *rs.Args {
		v, err := primitive(a)
		if err != nil {
			return StatementResult{}, fmt.Errorf("args[%d]: %w", i, err)
		}
		stmt.Args = append(stmt.Args, v)
	}

	result, err := optionalString(rs.Result, "result")
	if err != nil {
		return StatementResult{}, err
	}
	errMsg, err := optionalString(rs.Error, "error")
	if err != nil {
		return StatementResult{}, err
	}
	stmt.Result = result
	stmt.Error = errMsg

	if !stmt.Success && stmt.Error == nil {
		return StatementResult{}, fmt.Errorf("failed statement %q has no error", stmt.Function)
	}

	return stmt, nil
}

// primitive converts a decoded JSON value into an argument value
func primitive(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Errorf("invalid number %s", val.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
}

func optionalString(raw json.RawMessage, field string) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("field %q must be a string", field)
	}
	return &s, nil
}
