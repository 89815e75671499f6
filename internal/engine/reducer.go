package engine

import (
	"Go2Sawzall/internal/factory"
	"Go2Sawzall/internal/model"
	"context"

	"github.com/cockroachdb/errors"
)

// Reducer is the global final-reduction engine. It runs once per key over the
// union of original and pre-combined values and writes the final output.
type Reducer struct {
	tables *factory.Registry[model.Table]
	out    model.LineWriter
	folder folder
}

// NewReducer creates a Reducer over a task's table registry writing to out.
func NewReducer(tables *factory.Registry[model.Table], out model.LineWriter, opts Options) *Reducer {
	opts = opts.withDefaults("reduce")
	return &Reducer{
		tables: tables,
		out:    ioLineWriter{out: out, stats: opts.Stats},
		folder: folder{robust: opts.Robust, logger: opts.Logger, stats: opts.Stats},
	}
}

// Stats returns the counters of this reducer.
func (r *Reducer) Stats() *Stats {
	return r.folder.stats
}

// Reduce folds every value of key into its table and emits the final lines.
func (r *Reducer) Reduce(ctx context.Context, key model.EmissionKey, values model.ValueIterator) error {
	table, err := r.tables.Lookup(key.Target)
	if err != nil {
		return errors.Mark(err, ErrConfiguration)
	}
	r.folder.stats.keys.Add(1)

	table.SetCombining(false)
	table.SetContext(r.out)
	return r.folder.fold(ctx, table, key, values)
}
