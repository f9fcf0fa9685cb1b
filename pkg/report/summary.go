// Package report turns execution results into summaries, status lines and
// JSON report files.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
)

// StatementLine is one rendered statement of an execution result.
type StatementLine struct {
	Index   int    // 1-based
	Call    string // e.g. click(10, 20)
	Success bool
	Detail  string // result on success, error otherwise
}

// Summary condenses a single script execution.
type Summary struct {
	Passed     int
	Total      int
	Success    bool
	Statements []StatementLine
	Errors     []string
}

// Summarize builds the summary of one execution result.
func Summarize(r *core.ExecutionResult) Summary {
	s := Summary{
		Passed:     r.SuccessfulFunctions,
		Total:      r.TotalFunctions,
		Success:    r.AllPassed(),
		Statements: make([]StatementLine, 0, len(r.Results)),
		Errors:     append([]string(nil), r.Errors...),
	}

	for i, st := range r.Results {
		line := StatementLine{
			Index:   i + 1,
			Call:    FormatCall(st.Function, st.Args),
			Success: st.Success,
		}
		if st.Success {
			if st.Result != nil {
				line.Detail = *st.Result
			}
		} else if st.Error != nil {
			line.Detail = *st.Error
		}
		s.Statements = append(s.Statements, line)
	}
	return s
}

// FormatCall renders a statement the way it appears in a script, with string
// arguments quoted.
func FormatCall(function string, args []interface{}) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatArg(arg)
	}
	return function + "(" + strings.Join(parts, ", ") + ")"
}

func formatArg(arg interface{}) string {
	switch v := arg.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// IterationLine is one rendered iteration of a repeated run.
type IterationLine struct {
	Iteration    int
	Completed    bool
	Message      string // stop message for stopped iterations
	ScriptPassed int
	ScriptTotal  int
	ResetPassed  int
	ResetTotal   int
}

// RepeatSummary condenses a repeated run.
type RepeatSummary struct {
	RunID      string
	Completed  int
	Total      int
	Stopped    bool
	DurationMs int64
	Iterations []IterationLine
}

// SummarizeRepeat builds the summary of a repeated run.
func SummarizeRepeat(r *core.RepeatRunResult) RepeatSummary {
	s := RepeatSummary{
		RunID:      r.RunID,
		Completed:  r.CompletedIterations,
		Total:      r.TotalIterations,
		Stopped:    r.Stopped(),
		DurationMs: r.Duration().Milliseconds(),
		Iterations: make([]IterationLine, 0, len(r.Results)),
	}

	for _, it := range r.Results {
		s.Iterations = append(s.Iterations, SummarizeIteration(it))
	}
	return s
}

// SummarizeIteration builds the line for one iteration outcome.
func SummarizeIteration(it core.IterationOutcome) IterationLine {
	line := IterationLine{
		Iteration: it.Iteration,
		Completed: it.Status == core.IterationCompleted,
		Message:   it.Message,
	}
	if it.ScriptResult != nil {
		line.ScriptPassed = it.ScriptResult.SuccessfulFunctions
		line.ScriptTotal = it.ScriptResult.TotalFunctions
	}
	reset := SummarizeReset(it.ResetResult)
	line.ResetPassed = reset.Passed
	line.ResetTotal = reset.Total
	return line
}

// ResetLine is one rendered reset step.
type ResetLine struct {
	Action  string
	Success bool
	Detail  string
}

// ResetSummary condenses a device reset.
type ResetSummary struct {
	Passed int
	Total  int
	Steps  []ResetLine
}

// SummarizeReset builds the summary of a device reset.
func SummarizeReset(steps []core.ResetStepResult) ResetSummary {
	s := ResetSummary{Total: len(steps), Steps: make([]ResetLine, 0, len(steps))}
	for _, st := range steps {
		line := ResetLine{Action: st.Action, Success: st.Success, Detail: st.Error}
		if st.Success {
			s.Passed++
			if msg, ok := st.Result["message"].(string); ok {
				line.Detail = msg
			}
		}
		s.Steps = append(s.Steps, line)
	}
	return s
}

// FormatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
