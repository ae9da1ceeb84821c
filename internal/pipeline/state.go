package pipeline

import "fmt"

// JobState tracks one job through its run.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transition validates and applies a state change. A pending job may fail
// without running when the run is cancelled before it gets a slot.
func (j *Job) transition(to JobState) error {
	if !isValidTransition(j.State, to) {
		return fmt.Errorf("job %s: invalid transition: %s -> %s", j.ShortID(), j.State, to)
	}
	j.State = to
	return nil
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to JobState) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateFailed
	case StateRunning:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}
