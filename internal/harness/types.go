package harness

import "strings"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the transcript and outcome match the expectations.
	Pass bool `json:"pass"`

	// Transcript holds every output line, in order.
	Transcript []string `json:"transcript"`

	// Outcome is "success" or "failure".
	Outcome string `json:"outcome"`

	// RunError is the executor error of a failed run.
	RunError string `json:"run_error,omitempty"`

	// Undelivered counts steps never fed to the executor.
	Undelivered int `json:"undelivered"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Transcript: []string{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Render returns the transcript followed by the outcome line, one line per
// entry, newline terminated. This is the golden file format.
func (r *Result) Render() []byte {
	var b strings.Builder
	for _, line := range r.Transcript {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("OUTCOME ")
	b.WriteString(r.Outcome)
	if r.RunError != "" {
		b.WriteString(": ")
		b.WriteString(r.RunError)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
