package model

import "context"

// Emitter forwards records into the shuffle stage.
type Emitter interface {
	Emit(ctx context.Context, r Record) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, r Record) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, r Record) error {
	return f(ctx, r)
}
