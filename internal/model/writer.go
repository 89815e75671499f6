package model

import "context"

// LineWriter receives the final textual output of the reduce stage.
// Implementations decide where a target's lines are persisted.
type LineWriter interface {
	WriteLine(ctx context.Context, key EmissionKey, line string) error
}
