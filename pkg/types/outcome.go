// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome is the result category of extracting a single manifest entry.
type Outcome string

const (
	OutcomeCopied                Outcome = "copied"
	OutcomeMissingSource         Outcome = "missing_source"
	OutcomeSizeMismatch          Outcome = "size_mismatch"
	OutcomeHashMismatch          Outcome = "hash_mismatch"
	OutcomeDirectoryCreateFailed Outcome = "directory_create_failed"
	OutcomeCopyFailed            Outcome = "copy_failed"
)

// Failed reports whether the outcome counts against the run.
func (o Outcome) Failed() bool {
	return o != OutcomeCopied
}

// Result records what happened to one entry during a run.
type Result struct {
	Entry   Entry   `json:"entry" yaml:"entry"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Source is the resolved object path, Dest the materialized path.
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`

	// Err carries the underlying cause for failed outcomes. It is nil for
	// OutcomeCopied.
	Err error `json:"-" yaml:"-"`
}

// Message returns the error text, or "" when there is none.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Counts is the running tally reported after every entry.
type Counts struct {
	Success int `json:"success" yaml:"success"`
	Failed  int `json:"failed" yaml:"failed"`
	Total   int `json:"total" yaml:"total"`
}

// Done returns the number of entries processed so far.
func (c Counts) Done() int {
	return c.Success + c.Failed
}

// Summary holds the outcome of one extraction run.
type Summary struct {
	Counts

	// Bytes is the number of bytes materialized by successful copies.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Interrupted is set when the run stopped before visiting every entry.
	Interrupted bool `json:"interrupted" yaml:"interrupted"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Results []Result `json:"-" yaml:"-"`
}

// HasFailures reports whether any entry failed.
func (s *Summary) HasFailures() bool {
	return s.Failed > 0
}

// Failures returns the results whose outcome is not OutcomeCopied, in run order.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Outcome.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// ByOutcome tallies results per outcome.
func (s *Summary) ByOutcome() map[Outcome]int {
	m := make(map[Outcome]int)
	for _, r := range s.Results {
		m[r.Outcome]++
	}
	return m
}
