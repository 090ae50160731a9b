package harness

import (
	"fmt"
	"strings"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect and expect_error step matched.
	Pass bool `json:"pass"`

	// Trace is the text trace, one line per event. Golden files store it
	// verbatim.
	Trace []string `json:"trace"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []string{}, Errors: []string{}}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) tracef(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

// TraceText renders the trace with a trailing newline.
func (r *Result) TraceText() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}
