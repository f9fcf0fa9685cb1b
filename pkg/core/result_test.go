package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExecutionResult_SingleClick(t *testing.T) {
	body := `{
		"success": true,
		"total_functions": 1,
		"successful_functions": 1,
		"results": [{"function": "click", "args": [10, 20], "result": "Clicked at (10, 20)", "success": true}],
		"errors": []
	}`

	result, err := ParseExecutionResult([]byte(body))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalFunctions)
	assert.Equal(t, 1, result.SuccessfulFunctions)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "click", result.Results[0].Function)
	assert.Equal(t, []interface{}{int64(10), int64(20)}, result.Results[0].Args)
	assert.True(t, result.Results[0].Success)
	require.NotNil(t, result.Results[0].Result)
	assert.Equal(t, "Clicked at (10, 20)", *result.Results[0].Result)
	assert.Nil(t, result.Results[0].Error)
	assert.Empty(t, result.Errors)
	assert.True(t, result.AllPassed())
}

func TestParseExecutionResult_MixedArgs(t *testing.T) {
	body := `{"success": false, "total_functions": 2, "successful_functions": 1,
		"results": [
			{"function": "text", "args": ["hi", 1.5, true, null], "success": true, "result": null},
			{"function": "find_template", "args": ["a.png"], "success": false, "error": "not found"}
		],
		"errors": ["Function find_template(['a.png']) failed: not found"]}`

	result, err := ParseExecutionResult([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"hi", 1.5, true, nil}, result.Results[0].Args)
	assert.Nil(t, result.Results[0].Result)
	failed := result.FailedStatements()
	require.Len(t, failed, 1)
	assert.Equal(t, "not found", *failed[0].Error)
	assert.False(t, result.AllPassed())
}

func TestParseExecutionResult_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `<html>oops</html>`, "invalid JSON"},
		{"missing success", `{"total_functions":0,"successful_functions":0,"results":[],"errors":[]}`, `"success"`},
		{"missing results", `{"success":true,"total_functions":0,"successful_functions":0,"errors":[]}`, `"results"`},
		{"missing errors", `{"success":true,"total_functions":0,"successful_functions":0,"results":[]}`, `"errors"`},
		{"negative total", `{"success":true,"total_functions":-1,"successful_functions":0,"results":[],"errors":[]}`, "non-negative"},
		{"fractional count", `{"success":true,"total_functions":1.5,"successful_functions":0,"results":[],"errors":[]}`, "non-negative"},
		{"successful exceeds total", `{"success":true,"total_functions":1,"successful_functions":2,"results":[],"errors":[]}`, "exceeds"},
		{"statement without function", `{"success":true,"total_functions":1,"successful_functions":1,"results":[{"args":[],"success":true}],"errors":[]}`, `"function"`},
		{"statement without args", `{"success":true,"total_functions":1,"successful_functions":1,"results":[{"function":"wait","success":true}],"errors":[]}`, `"args"`},
		{"object argument", `{"success":true,"total_functions":1,"successful_functions":1,"results":[{"function":"wait","args":[{}],"success":true}],"errors":[]}`, "unsupported argument"},
		{"failure without error", `{"success":false,"total_functions":1,"successful_functions":0,"results":[{"function":"wait","args":[],"success":false}],"errors":[]}`, "has no error"},
		{"numeric result", `{"success":true,"total_functions":1,"successful_functions":1,"results":[{"function":"wait","args":[],"success":true,"result":5}],"errors":[]}`, `"result" must be a string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExecutionResult([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecutionResult_JSONShape(t *testing.T) {
	msg := "ok"
	result := ExecutionResult{
		Success:             true,
		TotalFunctions:      1,
		SuccessfulFunctions: 1,
		Results:             []StatementResult{{Function: "wait", Args: []interface{}{int64(100)}, Success: true, Result: &msg}},
		Errors:              []string{},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	parsed, err := ParseExecutionResult(data)
	require.NoError(t, err)
	assert.Equal(t, &result, parsed)
}

func TestRepeatRunResult_ComputeSummary(t *testing.T) {
	r := &RepeatRunResult{
		TotalIterations: 5,
		Results: []IterationOutcome{
			{Iteration: 1, Status: IterationCompleted},
			{Iteration: 2, Status: IterationCompleted},
			{Iteration: 3, Status: IterationStopped, Message: "stopped"},
		},
	}

	r.ComputeSummary()

	assert.Equal(t, 2, r.CompletedIterations)
	assert.True(t, r.Stopped())
}

func TestRepeatRunResult_NotStopped(t *testing.T) {
	r := &RepeatRunResult{Results: []IterationOutcome{{Iteration: 1, Status: IterationCompleted}}}
	assert.False(t, r.Stopped())
	assert.False(t, (&RepeatRunResult{}).Stopped())
}

func TestIterationStatus(t *testing.T) {
	assert.True(t, IterationCompleted.IsValid())
	assert.True(t, IterationStopped.IsValid())
	assert.False(t, IterationStatus("running").IsValid())
	assert.Equal(t, "stopped", IterationStopped.String())
}
