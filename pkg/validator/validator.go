// Package validator checks planned statements against the statement catalog
// the execution service understands, before anything is sent to a device.
package validator

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/blockly-runner/pkg/jsengine"
)

// ValidationError describes one problem with one statement.
type ValidationError struct {
	Index    int // 1-based position in the plan
	Function string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("statement %d (%s): %s", e.Index, e.Function, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Statements is the number of statements checked.
	Statements int
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

type kind int

const (
	kindNumber kind = iota
	kindString
)

func (k kind) String() string {
	if k == kindNumber {
		return "number"
	}
	return "string"
}

// signature describes the arguments a statement accepts. Arguments beyond
// min are optional; nonNegative lists argument positions that may not be < 0.
type signature struct {
	kinds       []kind
	min         int
	nonNegative []int
}

var catalog = map[string]signature{
	"click":          {kinds: []kind{kindNumber, kindNumber}, min: 2},
	"slide":          {kinds: []kind{kindNumber, kindNumber, kindNumber, kindNumber, kindNumber}, min: 4, nonNegative: []int{4}},
	"text":           {kinds: []kind{kindString}, min: 1},
	"wait":           {kinds: []kind{kindNumber}, min: 1, nonNegative: []int{0}},
	"go_url":         {kinds: []kind{kindString}, min: 1},
	"press_home":     {},
	"press_back":     {},
	"long_press":     {kinds: []kind{kindNumber, kindNumber, kindNumber}, min: 2, nonNegative: []int{2}},
	"double_tap":     {kinds: []kind{kindNumber, kindNumber}, min: 2},
	"find_template":  {kinds: []kind{kindString}, min: 1},
	"find_text":      {kinds: []kind{kindString}, min: 1},
	"click_object":   {kinds: []kind{kindString}, min: 1},
	"check_template": {kinds: []kind{kindString}, min: 1},
	"check_text":     {kinds: []kind{kindString}, min: 1},
}

// ClickTargets are the objects click_object accepts.
var ClickTargets = []string{"template", "text", "home", "last_page"}

// Known reports whether function is in the catalog.
func Known(function string) bool {
	_, ok := catalog[function]
	return ok
}

// Validator validates plans.
type Validator struct {
	templates map[string]bool
}

// New creates a new Validator. When templates is non-empty, template
// statements must name one of them.
func New(templates []string) *Validator {
	v := &Validator{}
	if len(templates) > 0 {
		v.templates = make(map[string]bool, len(templates))
		for _, t := range templates {
			v.templates[t] = true
		}
	}
	return v
}

// Validate checks every statement and reports every problem found.
func (v *Validator) Validate(plan []jsengine.PlannedStatement) *Result {
	result := &Result{Statements: len(plan)}
	for i, st := range plan {
		for _, msg := range v.check(st) {
			result.Errors = append(result.Errors, &ValidationError{
				Index:    i + 1,
				Function: st.Function,
				Message:  msg,
			})
		}
	}
	return result
}

func (v *Validator) check(st jsengine.PlannedStatement) []string {
	sig, ok := catalog[st.Function]
	if !ok {
		return []string{"unknown function"}
	}

	var problems []string
	if n := len(st.Args); n < sig.min || n > len(sig.kinds) {
		problems = append(problems, arityMessage(sig, n))
	}

	for i, arg := range st.Args {
		if i >= len(sig.kinds) {
			break
		}
		want := sig.kinds[i]
		if !hasKind(arg, want) {
			problems = append(problems, fmt.Sprintf("argument %d must be a %s, got %s", i+1, want, describe(arg)))
			continue
		}
		if contains(sig.nonNegative, i) && toFloat(arg) < 0 {
			problems = append(problems, fmt.Sprintf("argument %d must not be negative", i+1))
		}
	}

	if len(st.Args) > 0 {
		if s, ok := st.Args[0].(string); ok {
			problems = append(problems, v.checkTarget(st.Function, s)...)
		}
	}
	return problems
}

func (v *Validator) checkTarget(function, target string) []string {
	switch function {
	case "click_object":
		for _, t := range ClickTargets {
			if target == t {
				return nil
			}
		}
		return []string{fmt.Sprintf("unknown target %q, want one of %s", target, strings.Join(ClickTargets, ", "))}
	case "find_template", "check_template":
		if target == "" {
			return []string{"template id is empty"}
		}
		if v.templates != nil && !v.templates[target] {
			return []string{fmt.Sprintf("unknown template %q", target)}
		}
	case "go_url", "find_text", "check_text":
		if strings.TrimSpace(target) == "" {
			return []string{"argument 1 is empty"}
		}
	}
	return nil
}

func arityMessage(sig signature, n int) string {
	max := len(sig.kinds)
	switch {
	case sig.min == max:
		return fmt.Sprintf("expects %d argument(s), got %d", max, n)
	case n < sig.min:
		return fmt.Sprintf("expects at least %d argument(s), got %d", sig.min, n)
	default:
		return fmt.Sprintf("expects at most %d argument(s), got %d", max, n)
	}
}

func hasKind(arg interface{}, k kind) bool {
	switch arg.(type) {
	case int64, float64, int:
		return k == kindNumber
	case string:
		return k == kindString
	}
	return false
}

func describe(arg interface{}) string {
	switch arg.(type) {
	case nil:
		return "null"
	case int64, float64, int:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", arg)
}

func toFloat(arg interface{}) float64 {
	switch n := arg.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
