package model

// Status is the outcome tag of folding a single value.
type Status int

const (
	// StatusContinue means the value was folded and more input is welcome.
	StatusContinue Status = iota
	// StatusEarlyComplete means the accumulation is saturated. It is not an error.
	StatusEarlyComplete
	// StatusFailed means the value could not be folded; Err carries the cause.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusEarlyComplete:
		return "early-complete"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by Accumulator.Aggregate.
type Result struct {
	Status Status
	Err    error
}

// Continue is the result of a successfully folded value.
func Continue() Result { return Result{Status: StatusContinue} }

// EarlyComplete signals that no further input can change the accumulation.
func EarlyComplete() Result { return Result{Status: StatusEarlyComplete} }

// Fail wraps an error raised while folding one value.
func Fail(err error) Result { return Result{Status: StatusFailed, Err: err} }
