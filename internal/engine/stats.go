package engine

import "sync/atomic"

// Stats counts what a task did. Engines update it from the task goroutine;
// the status API reads it concurrently.
type Stats struct {
	Name string

	inputs        atomic.Int64
	keys          atomic.Int64
	folded        atomic.Int64
	dropped       atomic.Int64
	earlyComplete atomic.Int64
	passedThrough atomic.Int64
	finished      atomic.Int64
	emitted       atomic.Int64
}

// NewStats creates a named, zeroed Stats.
func NewStats(name string) *Stats {
	return &Stats{Name: name}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Name           string `json:"name"`
	Inputs         int64  `json:"inputs"`
	Keys           int64  `json:"keys"`
	Folded         int64  `json:"folded"`
	Dropped        int64  `json:"dropped"`
	EarlyCompleted int64  `json:"early_completed"`
	PassedThrough  int64  `json:"passed_through"`
	Finished       int64  `json:"finished"`
	Emitted        int64  `json:"emitted"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Name:           s.Name,
		Inputs:         s.inputs.Load(),
		Keys:           s.keys.Load(),
		Folded:         s.folded.Load(),
		Dropped:        s.dropped.Load(),
		EarlyCompleted: s.earlyComplete.Load(),
		PassedThrough:  s.passedThrough.Load(),
		Finished:       s.finished.Load(),
		Emitted:        s.emitted.Load(),
	}
}
