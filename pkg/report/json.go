package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/blockly-runner/pkg/core"
)

// FileName is the report written into an output directory.
const FileName = "report.json"

// Version is the report schema version.
const Version = "1.0.0"

// Document is the content of report.json. At most one of Execution and
// Repeat is set.
type Document struct {
	Version     string                `json:"version"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Script      string                `json:"script,omitempty"`
	Status      string                `json:"status"`
	Level       Level                 `json:"level"`
	Error       string                `json:"error,omitempty"`
	Execution   *core.ExecutionResult `json:"execution,omitempty"`
	Repeat      *core.RepeatRunResult `json:"repeat,omitempty"`
}

// NewDocument builds a report for a finished run. err is the run error, if any.
func NewDocument(script string, exec *core.ExecutionResult, repeat *core.RepeatRunResult, err error) *Document {
	doc := &Document{
		Version:     Version,
		GeneratedAt: time.Now(),
		Script:      script,
		Execution:   exec,
		Repeat:      repeat,
	}

	var st Status
	switch {
	case err != nil:
		st = FailureStatus(err)
		doc.Error = err.Error()
	case repeat != nil:
		st = RepeatStatus(repeat)
	case exec != nil:
		st = ExecutionStatus(exec)
	}
	doc.Status = st.Message
	doc.Level = st.Level
	return doc
}

// WriteJSON writes v as indented JSON to dir/report.json, creating dir when
// needed. The file is replaced atomically so readers never see a partial report.
func WriteJSON(dir string, v interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
