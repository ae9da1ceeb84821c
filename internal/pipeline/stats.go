package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one job. Output is stdout followed by stderr.
type Result struct {
	Job         *Job
	State       JobState
	Output      string
	Stderr      string
	ExitCode    int
	Err         error
	Duration    time.Duration
	InputBytes  int64
	OutputBytes int64
}

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	RunID            uuid.UUID
	Total            int
	Succeeded        int
	Failed           int
	TotalInputBytes  int64
	TotalOutputBytes int64
	Elapsed          time.Duration
	Results          []Result
}

// Add folds one job result into the totals.
func (s *RunStats) Add(r Result) {
	s.Results = append(s.Results, r)
	s.TotalInputBytes += r.InputBytes
	if r.State == StateSucceeded {
		s.Succeeded++
		s.TotalOutputBytes += r.OutputBytes
		return
	}
	s.Failed++
}

// OK reports whether every job succeeded.
func (s *RunStats) OK() bool {
	return s.Failed == 0
}
