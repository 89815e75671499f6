package engine

import (
	"Go2Sawzall/internal/model"
	"context"
	"io"
	"log"

	"github.com/cockroachdb/errors"
)

// folder drives one Accumulator through a single key invocation:
//
//	Start(key) -> Aggregate* -> Finish   (DONE)
//	Start(key) -> Aggregate* -> early    (DONE, Finish skipped)
//	Start(key) -> Aggregate* -> error    (FAILED)
//
// Callers configure the accumulator (SetCombining, SetContext) beforehand.
type folder struct {
	robust bool
	logger *log.Logger
	stats  *Stats
}

func (f *folder) fold(ctx context.Context, acc model.Accumulator, key model.EmissionKey, values model.ValueIterator) error {
	acc.Start(key)

	for i := 0; ; i++ {
		if err := cancelled(ctx); err != nil {
			return errors.Wrapf(err, "folding %s", key)
		}
		v, err := values.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return MarkIO(errors.Wrapf(err, "failed to read value %d of %s", i, key))
		}

		res := acc.Aggregate(v.Data, v.Metadata)
		switch res.Status {
		case model.StatusContinue:
			f.stats.folded.Add(1)
		case model.StatusEarlyComplete:
			f.stats.folded.Add(1)
			f.stats.earlyComplete.Add(1)
			return nil
		case model.StatusFailed:
			cause := res.Err
			if cause == nil {
				cause = errors.New("aggregate failed without a cause")
			}
			if IsFatal(cause) {
				return errors.Wrapf(cause, "value %d of %s", i, key)
			}
			if !f.robust {
				return errors.Mark(errors.Wrapf(cause, "value %d of %s", i, key), ErrApplication)
			}
			f.stats.dropped.Add(1)
			f.logger.Printf("Dropping value %d of %s in robust mode: %v", i, key, cause)
		default:
			return errors.AssertionFailedf("unexpected fold status %d for %s", res.Status, key)
		}
	}

	// Sink failures arrive already marked by ioEmitter or ioLineWriter.
	if err := acc.Finish(ctx); err != nil {
		if IsFatal(err) {
			return errors.Wrapf(err, "finishing %s", key)
		}
		if !f.robust {
			return errors.Mark(errors.Wrapf(err, "finishing %s", key), ErrApplication)
		}
		f.stats.dropped.Add(1)
		f.logger.Printf("Dropping result of %s in robust mode: %v", key, err)
		return nil
	}
	f.stats.finished.Add(1)
	return nil
}

// ioEmitter marks every failure of the wrapped emitter as substrate I/O so a
// variant cannot launder it through the robust policy.
type ioEmitter struct {
	out   model.Emitter
	stats *Stats
}

func (e ioEmitter) Emit(ctx context.Context, r model.Record) error {
	if err := e.out.Emit(ctx, r); err != nil {
		return MarkIO(errors.Wrapf(err, "failed to emit %s", r.Key))
	}
	e.stats.emitted.Add(1)
	return nil
}

// ioLineWriter is the LineWriter counterpart of ioEmitter.
type ioLineWriter struct {
	out   model.LineWriter
	stats *Stats
}

func (w ioLineWriter) WriteLine(ctx context.Context, key model.EmissionKey, line string) error {
	if err := w.out.WriteLine(ctx, key, line); err != nil {
		return MarkIO(errors.Wrapf(err, "failed to write output for %s", key))
	}
	w.stats.emitted.Add(1)
	return nil
}
