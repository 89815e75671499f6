package engine

import (
	"Go2Sawzall/internal/model"
	"context"

	"github.com/cockroachdb/errors"
)

// Program is the analysis logic run once per input record. It may emit any
// number of records and owns its own failure policy, for which it receives
// the task's robust flag.
type Program interface {
	Run(ctx context.Context, input []byte, robust bool, emit model.Emitter) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx context.Context, input []byte, robust bool, emit model.Emitter) error

// Run implements Program.
func (f ProgramFunc) Run(ctx context.Context, input []byte, robust bool, emit model.Emitter) error {
	return f(ctx, input, robust, emit)
}

// MapAdapter forwards everything a Program emits, unmodified, to the shuffle.
type MapAdapter struct {
	program Program
	robust  bool
	stats   *Stats
}

// NewMapAdapter creates a MapAdapter for one map task.
func NewMapAdapter(program Program, opts Options) *MapAdapter {
	opts = opts.withDefaults("map")
	return &MapAdapter{program: program, robust: opts.Robust, stats: opts.Stats}
}

// Stats returns the counters of this adapter.
func (m *MapAdapter) Stats() *Stats {
	return m.stats
}

// Map runs the program over one input record.
func (m *MapAdapter) Map(ctx context.Context, input []byte, out model.Emitter) error {
	if err := cancelled(ctx); err != nil {
		return err
	}
	m.stats.inputs.Add(1)
	sink := ioEmitter{out: out, stats: m.stats}
	if err := m.program.Run(ctx, input, m.robust, sink); err != nil {
		if IsFatal(err) {
			return err
		}
		return errors.Mark(errors.Wrap(err, "analysis program failed"), ErrApplication)
	}
	return nil
}
