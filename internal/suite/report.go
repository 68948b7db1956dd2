package suite

import (
	"time"
)

type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	// StatusFlaky is a test that failed and then passed on a retry.
	StatusFlaky Status = "flaky"
)

// Result is the outcome of one test under one project, after retries.
type Result struct {
	Project      string        `json:"project"`
	Suite        string        `json:"suite"`
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"durationMs"`
	Error        string        `json:"error,omitempty"`
	SoftFailures []string      `json:"softFailures,omitempty"`
	Artifacts    []string      `json:"artifacts,omitempty"`
}

// ID is "project: suite/case".
func (r Result) ID() string {
	return r.Project + ": " + r.Suite + "/" + r.Name
}

type Totals struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Flaky  int `json:"flaky"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
	OutputDir  string    `json:"outputDir,omitempty"`
	Results    []Result  `json:"results"`
	Totals     Totals    `json:"totals"`
}

func (r *Report) tally() {
	r.Totals = Totals{}
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			r.Totals.Passed++
		case StatusFlaky:
			r.Totals.Flaky++
		default:
			r.Totals.Failed++
		}
	}
}

// Passed reports whether every test passed, counting flaky tests as
// passed.
func (r *Report) Passed() bool {
	return r.Totals.Failed == 0
}

// Failures returns the results that did not pass.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}
