package engine

import (
	"Go2Sawzall/internal/codec"
	"context"

	"github.com/cockroachdb/errors"
)

// Error classes. Substrate I/O, cancellation and configuration errors abort the
// task whatever the robust setting; application errors abort only when robust
// mode is off.
var (
	ErrSubstrateIO   = errors.New("substrate I/O failure")
	ErrCancelled     = errors.New("task cancelled")
	ErrConfiguration = errors.New("configuration error")
	ErrApplication   = errors.New("application error")
)

// MarkIO tags err as a substrate I/O failure. Context errors are tagged as
// cancellation instead.
func MarkIO(err error) error {
	if err == nil {
		return nil
	}
	if isContextErr(err) {
		return errors.Mark(err, ErrCancelled)
	}
	return errors.Mark(err, ErrSubstrateIO)
}

// IsFatal reports whether err must abort the task regardless of robust mode.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSubstrateIO) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, codec.ErrCorruptStream) ||
		isContextErr(err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(err, ErrCancelled)
	}
	return nil
}
