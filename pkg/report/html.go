package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

// HTMLFileName is the HTML report written next to report.json.
const HTMLFileName = "report.html"

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title       string
	GeneratedAt string
	Status      string
	StatusClass string
	Error       string
	Script      string
	Execution   *Summary
	Repeat      *RepeatSummary
	Duration    string
}

// WriteHTML renders doc to dir/report.html.
func WriteHTML(dir string, doc *Document) (string, error) {
	html, err := renderHTML(buildHTMLData(doc))
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, HTMLFileName)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return path, nil
}

func buildHTMLData(doc *Document) HTMLData {
	statusClass := map[Level]string{
		LevelInfo:    "pending",
		LevelSuccess: "passed",
		LevelWarning: "skipped",
		LevelError:   "failed",
	}

	data := HTMLData{
		Title:       "Script Report",
		GeneratedAt: doc.GeneratedAt.Format("2006-01-02 15:04:05"),
		Status:      doc.Status,
		StatusClass: statusClass[doc.Level],
		Error:       doc.Error,
		Script:      doc.Script,
	}
	if doc.Execution != nil {
		s := Summarize(doc.Execution)
		data.Execution = &s
	}
	if doc.Repeat != nil {
		s := SummarizeRepeat(doc.Repeat)
		data.Repeat = &s
		data.Title = "Batch Report"
		data.Duration = FormatDuration(s.DurationMs)
	}
	return data
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --text-primary: #000000;
            --text-secondary: rgb(75, 85, 99);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --skipped: #eab308;
            --skipped-bg: rgba(234, 179, 8, 0.1);
            --pending: #6b7280;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-title-main { font-size: 16px; font-weight: 500; }
        .header-title-sub { font-size: 12px; color: var(--text-secondary); }

        .status-badge {
            display: inline-block;
            margin-top: 8px;
            padding: 2px 10px;
            border-radius: 9999px;
            font-size: 13px;
            font-weight: 500;
        }
        .status-badge.passed { color: var(--passed); background: var(--passed-bg); }
        .status-badge.failed { color: var(--failed); background: var(--failed-bg); }
        .status-badge.skipped { color: var(--skipped); background: var(--skipped-bg); }
        .status-badge.pending { color: var(--pending); }

        main { padding: 24px; }
        section { margin-bottom: 24px; }
        h2 { font-size: 14px; font-weight: 600; margin-bottom: 8px; }

        table { width: 100%; border-collapse: collapse; font-size: 13px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--border-color); }
        th { color: var(--text-secondary); font-weight: 500; }
        tr.passed td:first-child { border-left: 3px solid var(--passed); }
        tr.failed td:first-child { border-left: 3px solid var(--failed); }
        tr.skipped td:first-child { border-left: 3px solid var(--skipped); }

        code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 12px; }
        pre {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            padding: 12px;
            overflow-x: auto;
        }
        .error { color: var(--failed); }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-title-main">{{.Title}}</div>
        <div class="header-title-sub">Generated {{.GeneratedAt}}{{if .Duration}} &middot; {{.Duration}}{{end}}</div>
        <div class="status-badge {{.StatusClass}}">{{.Status}}</div>
    </div>
    <main>
        {{if .Error}}
        <section>
            <h2>Error</h2>
            <pre class="error">{{.Error}}</pre>
        </section>
        {{end}}

        {{with .Execution}}
        <section>
            <h2>Statements: {{.Passed}}/{{.Total}} passed</h2>
            <table>
                <tr><th>#</th><th>Statement</th><th>Detail</th></tr>
                {{range .Statements}}
                <tr class="{{if .Success}}passed{{else}}failed{{end}}">
                    <td>{{.Index}}</td><td><code>{{.Call}}</code></td><td>{{.Detail}}</td>
                </tr>
                {{end}}
            </table>
            {{if .Errors}}
            <h2>Errors</h2>
            <ul>{{range .Errors}}<li class="error">{{.}}</li>{{end}}</ul>
            {{end}}
        </section>
        {{end}}

        {{with .Repeat}}
        <section>
            <h2>Iterations: {{.Completed}}/{{.Total}} completed</h2>
            <table>
                <tr><th>#</th><th>Script</th><th>Reset</th><th>Note</th></tr>
                {{range .Iterations}}
                <tr class="{{if not .Completed}}skipped{{else if eq .ScriptPassed .ScriptTotal}}passed{{else}}failed{{end}}">
                    <td>{{.Iteration}}</td>
                    {{if .Completed}}
                    <td>{{.ScriptPassed}}/{{.ScriptTotal}}</td><td>{{.ResetPassed}}/{{.ResetTotal}}</td><td></td>
                    {{else}}
                    <td></td><td></td><td>{{.Message}}</td>
                    {{end}}
                </tr>
                {{end}}
            </table>
        </section>
        {{end}}

        {{if .Script}}
        <section>
            <h2>Script</h2>
            <pre>{{.Script}}</pre>
        </section>
        {{end}}
    </main>
</body>
</html>
`
