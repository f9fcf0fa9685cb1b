package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/devicelab-dev/blockly-runner/pkg/jsengine"
	"github.com/devicelab-dev/blockly-runner/pkg/validator"
	"golang.org/x/term"
)

// ColorsEnabled reports whether output to w should be coloured: never when
// NO_COLOR is set, otherwise only when w is a terminal.
func ColorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

type styles struct {
	bold  lipgloss.Style
	gray  lipgloss.Style
	cyan  lipgloss.Style
	green lipgloss.Style
	red   lipgloss.Style
	amber lipgloss.Style
	blue  lipgloss.Style
}

func newStyles(w io.Writer, colors bool) styles {
	if !colors {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		bold:  r.NewStyle().Bold(true),
		gray:  r.NewStyle().Foreground(lipgloss.Color("245")),
		cyan:  r.NewStyle().Foreground(lipgloss.Color("6")),
		green: r.NewStyle().Foreground(lipgloss.Color("2")),
		red:   r.NewStyle().Foreground(lipgloss.Color("1")),
		amber: r.NewStyle().Foreground(lipgloss.Color("3")),
		blue:  r.NewStyle().Foreground(lipgloss.Color("4")),
	}
}

// Printer renders summaries and status lines for a terminal.
type Printer struct {
	out io.Writer
	st  styles
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, colors bool) *Printer {
	return &Printer{out: out, st: newStyles(out, colors)}
}

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) mark(ok bool) string {
	if ok {
		return p.st.green.Render("✓")
	}
	return p.st.red.Render("✗")
}

// Status prints a status line coloured by level.
func (p *Printer) Status(s Status) {
	style := p.st.blue
	switch s.Level {
	case LevelSuccess:
		style = p.st.green
	case LevelWarning:
		style = p.st.amber
	case LevelError:
		style = p.st.red
	}
	p.printf("%s\n", style.Render(s.Message))
}

// Execution prints the summary of a single run.
func (p *Printer) Execution(s Summary) {
	counts := fmt.Sprintf("%d/%d statements passed", s.Passed, s.Total)
	if s.Success {
		counts = p.st.green.Render(counts)
	} else {
		counts = p.st.red.Render(counts)
	}
	p.printf("\n  %s %s\n", p.st.bold.Render("Result:"), counts)
	p.printf("%s\n", strings.Repeat("─", 60))

	for _, line := range s.Statements {
		p.printf("    %s %d. %s\n", p.mark(line.Success), line.Index, line.Call)
		if line.Detail != "" {
			detail := line.Detail
			if !line.Success {
				detail = p.st.red.Render(detail)
			}
			p.printf("      %s %s\n", p.st.gray.Render("╰─"), detail)
		}
	}

	if len(s.Errors) > 0 {
		p.printf("\n  %s\n", p.st.red.Render("Errors:"))
		for _, e := range s.Errors {
			p.printf("    • %s\n", e)
		}
	}
}

// IterationStart prints the header of one iteration of a repeated run.
func (p *Printer) IterationStart(iteration, total int) {
	p.printf("\n  %s %s\n",
		p.st.cyan.Render(fmt.Sprintf("[%d/%d]", iteration, total)),
		p.st.bold.Render("iteration"))
}

// Iteration prints one finished iteration.
func (p *Printer) Iteration(line IterationLine) {
	if !line.Completed {
		p.printf("    %s #%d %s\n", p.st.amber.Render("■"), line.Iteration, p.st.amber.Render(line.Message))
		return
	}
	ok := line.ScriptPassed == line.ScriptTotal
	p.printf("    %s #%d script %d/%d %s\n",
		p.mark(ok), line.Iteration, line.ScriptPassed, line.ScriptTotal,
		p.st.gray.Render(fmt.Sprintf("(reset %d/%d)", line.ResetPassed, line.ResetTotal)))
}

// Repeat prints the summary of a repeated run.
func (p *Printer) Repeat(s RepeatSummary) {
	tableWidth := 60
	p.printf("\n%s\n", strings.Repeat("═", tableWidth))
	counts := fmt.Sprintf("%d/%d iterations completed", s.Completed, s.Total)
	if s.Completed == s.Total {
		counts = p.st.green.Render(counts)
	} else {
		counts = p.st.amber.Render(counts)
	}
	p.printf("  %s %s %s\n", p.st.bold.Render("Batch:"), counts, p.st.gray.Render(FormatDuration(s.DurationMs)))
	p.printf("%s\n", strings.Repeat("─", tableWidth))
	for _, line := range s.Iterations {
		p.Iteration(line)
	}
	p.printf("%s\n", strings.Repeat("═", tableWidth))
}

// Reset prints the steps of a device reset.
func (p *Printer) Reset(s ResetSummary) {
	for _, step := range s.Steps {
		detail := step.Detail
		if detail == "" {
			detail = "ok"
		}
		p.printf("    %s %s: %s\n", p.mark(step.Success), step.Action, detail)
	}
}

// Plan prints a dry-run plan followed by its validation issues.
func (p *Printer) Plan(plan []jsengine.PlannedStatement, result *validator.Result) {
	invalid := make(map[int]bool)
	for _, err := range result.Errors {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			invalid[verr.Index] = true
		}
	}

	p.printf("\n  %s %d statement(s)\n", p.st.bold.Render("Plan:"), len(plan))
	p.printf("%s\n", strings.Repeat("─", 60))
	for i, st := range plan {
		p.printf("    %s %d. %s\n", p.mark(!invalid[i+1]), i+1, FormatCall(st.Function, st.Args))
	}

	if len(result.Errors) > 0 {
		p.printf("\n  %s\n", p.st.red.Render("Validation errors:"))
		for _, err := range result.Errors {
			p.printf("    • %v\n", err)
		}
	}
	p.Status(PlanStatus(result))
}

