package model

import (
	"time"
)

// SourceOutcome is the result of one source in one run. It only lives for the
// duration of the run and the monitor's rolling window.
type SourceOutcome struct {
	SourceID  string        `json:"sourceId"`
	Method    string        `json:"method"`
	Success   bool          `json:"success"`
	ItemCount int           `json:"itemCount"`
	Dropped   int           `json:"dropped"`
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"durationNs"`
	Error     string        `json:"error,omitempty"`
}

// RunReport summarizes one orchestration pass.
type RunReport struct {
	RunID             string          `json:"runId"`
	Kind              string          `json:"kind"`
	StartedAt         time.Time       `json:"startedAt"`
	FinishedAt        time.Time       `json:"finishedAt"`
	Outcomes          []SourceOutcome `json:"outcomes"`
	CorpusSize        int             `json:"corpusSize"`
	DuplicatesRemoved int             `json:"duplicatesRemoved"`
	Error             string          `json:"error,omitempty"`
}

func (r *RunReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

func (r *RunReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// AllFailed is true when at least one source ran and none succeeded.
func (r *RunReport) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Succeeded() == 0
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
